package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"
)

// AllPlayers stands in for the player component of session-wide compliance keys.
const AllPlayers = "all"

// ComplianceKey is compliance:<session>:<player|all>:<detailed>.
func ComplianceKey(sessionID, playerID string, detailed bool) string {
	if playerID == "" {
		playerID = AllPlayers
	}
	return "compliance:" + sessionID + ":" + playerID + ":" + strconv.FormatBool(detailed)
}

// CompliancePlayerPatterns are the keys invalidated when a player's overrides change.
func CompliancePlayerPatterns(playerID string) []string {
	return []string{
		"compliance:*:" + playerID + ":*",
		"compliance:*:" + AllPlayers + ":*",
	}
}

// AlternativesKey fingerprints the restriction set so any change misses the cache.
func AlternativesKey(exerciseID string, restrictionFingerprints []string) string {
	sorted := append([]string(nil), restrictionFingerprints...)
	sort.Strings(sorted)
	sum := sha1.Sum([]byte(strings.Join(sorted, "|")))
	return "alternatives:" + exerciseID + ":" + hex.EncodeToString(sum[:8])
}

func PhaseKey(teamID string) string { return "planning:phase:" + teamID }

func PlanKey(teamID string) string { return "planning:plan:" + teamID }

// StaleKey is the long-lived shadow copy served when the upstream is down.
func StaleKey(key string) string { return key + ":stale" }

// PlayerAssignmentsKey is assignments:player:<id>:<from>:<to> with full UTC timestamps,
// so two windows on the same day never share an entry.
func PlayerAssignmentsKey(playerID string, from, to time.Time) string {
	return "assignments:player:" + playerID + ":" + from.UTC().Format(time.RFC3339Nano) + ":" + to.UTC().Format(time.RFC3339Nano)
}

func PlayerAssignmentsPattern(playerID string) string {
	return "assignments:player:" + playerID + ":*"
}
