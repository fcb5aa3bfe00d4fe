package restriction

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"alcyxob/training-service/internal/cache"
	"alcyxob/training-service/internal/domain"
	"alcyxob/training-service/internal/repository"

	"go.uber.org/zap"
)

const (
	maxScore          = 100.0
	minSuitability    = 60.0
	maxAlternatives   = 3
	musclePenalty     = 30.0
	equipmentPenalty  = 10.0
	intensityPenalty  = 15.0
	lowIntensityBonus = 10.0
	lowIntensityRatio = 0.8
)

// Alternative is a ranked substitute exercise.
type Alternative struct {
	Exercise domain.Exercise `json:"exercise"`
	Score    float64         `json:"score"`
}

// Recommendation is returned instead of substitutes when none is suitable:
// the original exercise stays, performed with reduced load and extra rest.
type Recommendation struct {
	KeepOriginal   bool     `json:"keepOriginal"`
	LoadMultiplier float64  `json:"loadMultiplier"`
	RestMultiplier float64  `json:"restMultiplier"`
	Notes          []string `json:"notes"`
}

type AlternativeResult struct {
	OriginalExerciseID string          `json:"originalExerciseId"`
	OriginalName       string          `json:"originalName"`
	Prohibited         bool            `json:"prohibited"`
	Reasons            []Reason        `json:"reasons,omitempty"`
	Alternatives       []Alternative   `json:"alternatives"`
	Recommendation     *Recommendation `json:"recommendation,omitempty"`
}

// Finder ranks substitute exercises for a player's restrictions.
type Finder struct {
	exercises repository.ExerciseRepository
	cache     cache.Cache
	ttl       time.Duration
	log       *zap.Logger
}

func NewFinder(exercises repository.ExerciseRepository, c cache.Cache, ttl time.Duration, log *zap.Logger) *Finder {
	return &Finder{exercises: exercises, cache: c, ttl: ttl, log: log}
}

// FindAlternatives draws candidates from the original's category in the same organization,
// drops anything still prohibited, scores the rest and keeps the best three scoring at least 60.
// An empty candidate list is not an error: the result then carries a Recommendation.
func (f *Finder) FindAlternatives(ctx context.Context, original domain.Exercise, restrictions []domain.MedicalRestriction) (*AlternativeResult, error) {
	key := cache.AlternativesKey(original.ID.Hex(), fingerprints(restrictions))
	var cached AlternativeResult
	if hit, err := f.cache.Get(ctx, key, &cached); err != nil {
		f.log.Warn("alternatives cache read failed", zap.String("key", key), zap.Error(err))
	} else if hit {
		return &cached, nil
	}

	combined := Combine(restrictions)
	result := &AlternativeResult{
		OriginalExerciseID: original.ID.Hex(),
		OriginalName:       original.Name,
		Reasons:            ProhibitionReasons(original, combined.Limits),
		Alternatives:       []Alternative{},
	}
	result.Prohibited = len(result.Reasons) > 0

	candidates, err := f.exercises.GetByCategory(ctx, original.OrganizationID, original.Category)
	if err != nil {
		return nil, fmt.Errorf("load candidate exercises: %w", err)
	}
	result.Alternatives = Rank(original, candidates, combined)

	if len(result.Alternatives) == 0 {
		result.Recommendation = recommend(combined)
	}

	if err := f.cache.Set(ctx, key, result, f.ttl); err != nil {
		f.log.Warn("alternatives cache write failed", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

// Rank scores candidates against the original and returns at most three, best first,
// ties broken by name.
func Rank(original domain.Exercise, candidates []domain.Exercise, combined Combined) []Alternative {
	out := []Alternative{}
	for _, cand := range candidates {
		if cand.ID == original.ID || cand.OrganizationID != original.OrganizationID ||
			!strings.EqualFold(cand.Category, original.Category) {
			continue
		}
		if IsProhibited(cand, combined.Limits) {
			continue
		}
		score := Score(original, cand, combined.MaxExertion)
		if score < minSuitability {
			continue
		}
		out = append(out, Alternative{Exercise: cand, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Exercise.Name < out[j].Exercise.Name
	})
	if len(out) > maxAlternatives {
		out = out[:maxAlternatives]
	}
	return out
}

// Score rates a candidate as a substitute, in [0, 100].
func Score(original, candidate domain.Exercise, maxExertion *float64) float64 {
	score := maxScore

	if muscles := original.Muscles(); len(muscles) > 0 {
		covered := 0
		candMuscles := candidate.Muscles()
		for _, m := range muscles {
			if containsFold(candMuscles, m) {
				covered++
			}
		}
		score -= musclePenalty * (1 - float64(covered)/float64(len(muscles)))
	}
	if normalize(candidate.Equipment) != normalize(original.Equipment) {
		score -= equipmentPenalty
	}
	if candidate.DefaultIntensity > original.DefaultIntensity {
		score -= intensityPenalty
	}
	if maxExertion != nil && candidate.DefaultIntensity < lowIntensityRatio*(*maxExertion) {
		score += lowIntensityBonus
	}
	return math.Max(0, math.Min(maxScore, score))
}

func recommend(c Combined) *Recommendation {
	rec := &Recommendation{
		KeepOriginal:   true,
		LoadMultiplier: c.LoadMultiplier,
		RestMultiplier: c.RestMultiplier,
		Notes:          []string{"no suitable substitute found; modify the exercise instead of replacing it"},
	}
	if c.LoadMultiplier < 1 {
		rec.Notes = append(rec.Notes, fmt.Sprintf("reduce load to %.0f%% of prescribed", c.LoadMultiplier*100))
	}
	if c.RestMultiplier > 1 {
		rec.Notes = append(rec.Notes, fmt.Sprintf("extend rest periods by %.1fx", c.RestMultiplier))
	}
	if c.MaxExertion != nil {
		rec.Notes = append(rec.Notes, fmt.Sprintf("keep effort below %.0f%% of max", *c.MaxExertion))
	}
	if len(c.Movements) > 0 {
		rec.Notes = append(rec.Notes, "avoid movements: "+strings.Join(c.Movements, ", "))
	}
	if c.RequiresSupervision {
		rec.Notes = append(rec.Notes, "perform under staff supervision")
	}
	if c.ClearanceRequired {
		rec.Notes = append(rec.Notes, "medical clearance required before full load")
	}
	return rec
}

// fingerprints identify the restriction set for caching; any field that changes
// the outcome is part of it.
func fingerprints(restrictions []domain.MedicalRestriction) []string {
	out := make([]string, 0, len(restrictions))
	for _, r := range restrictions {
		exertion := "-"
		if r.MaxExertionLevel != nil {
			exertion = fmt.Sprintf("%g", *r.MaxExertionLevel)
		}
		out = append(out, strings.Join([]string{
			r.ID, string(r.Severity), string(r.Status), exertion,
			strings.Join(r.AffectedBodyParts, ","),
			strings.Join(r.RestrictedMovements, ","),
			strings.Join(r.RestrictedExerciseTypes, ","),
			fmt.Sprint(r.RequiresSupervision, r.ClearanceRequired),
		}, ";"))
	}
	return out
}
