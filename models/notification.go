package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Notification is a targeted clinical notification ("patient arrived for
// doctor X"). Read flips monotonically false→true; nothing else mutates.
type Notification struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID   primitive.ObjectID `bson:"tenantId" json:"tenantId"`
	IssuerID   primitive.ObjectID `bson:"issuerId" json:"issuerId"`
	TargetID   primitive.ObjectID `bson:"targetId" json:"targetId"`
	SubjectRef string             `bson:"subjectRef,omitempty" json:"subjectRef,omitempty"`
	Body       string             `bson:"body" json:"body"`
	Read       bool               `bson:"read" json:"read"`
	CreatedAt  int64              `bson:"createdAt" json:"createdAt"`
}
