package domain

import (
	"strconv"
	"time"
)

// Role type to distinguish between staff roles carried in access tokens.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCoach   Role = "coach"
	RoleMedical Role = "medical_staff"
	RolePlayer  Role = "player"
	RoleService Role = "service" // other platform services delivering events
)

// Team is a node of an organization's hierarchy. Sub-teams point at their parent.
type Team struct {
	ID             string    `bson:"_id" json:"id"`
	OrganizationID string    `bson:"organizationId" json:"organizationId"`
	ParentTeamID   *string   `bson:"parentTeamId,omitempty" json:"parentTeamId,omitempty"`
	Name           string    `bson:"name" json:"name"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Player is the roster mirror used to resolve hierarchy targets into player ids.
type Player struct {
	ID             string     `bson:"_id" json:"id"`
	OrganizationID string     `bson:"organizationId" json:"organizationId"`
	TeamID         string     `bson:"teamId" json:"teamId"`
	Name           string     `bson:"name" json:"name"`
	Line           string     `bson:"line,omitempty" json:"line,omitempty"`         // e.g. "forwards", "defense"
	Position       string     `bson:"position,omitempty" json:"position,omitempty"` // e.g. "C", "LW", "G"
	BirthDate      *time.Time `bson:"birthDate,omitempty" json:"birthDate,omitempty"`
	Active         bool       `bson:"active" json:"active"`
	UpdatedAt      time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// AgeGroup buckets a player into "U<n>" by the age reached in the reference year,
// e.g. a player turning 15 in 2026 is "U16". Players without a birth date have none.
func (p *Player) AgeGroup(ref time.Time) string {
	if p.BirthDate == nil {
		return ""
	}
	age := ref.Year() - p.BirthDate.Year()
	return "U" + strconv.Itoa(age+1)
}
