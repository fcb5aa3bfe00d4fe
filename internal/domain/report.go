package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ComplianceReport stores metadata about an archived bulk compliance report.
// The report body itself resides in S3.
type ComplianceReport struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	OrganizationID string               `bson:"organizationId" json:"organizationId"`
	SessionIDs     []primitive.ObjectID `bson:"sessionIds" json:"sessionIds"`
	OverallStatus  ComplianceStatus     `bson:"overallStatus" json:"overallStatus"`
	S3ObjectKey    string               `bson:"s3ObjectKey" json:"-"` // internal use
	ContentType    string               `bson:"contentType" json:"contentType"`
	Size           int64                `bson:"size" json:"size"`
	RequestedBy    string               `bson:"requestedBy" json:"requestedBy"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
	DownloadURL    string               `bson:"-" json:"downloadUrl,omitempty"` // generated per request, not stored
}
