package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Staff is the delivery layer's projection of a staff record. The full
// record (credentials, schedule, billing rights) lives in the CRUD layer;
// only the fields needed for routing and the roster are kept here.
type Staff struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID primitive.ObjectID `bson:"tenantId" json:"tenantId"`
	Name     string             `bson:"name" json:"name"`
	Role     string             `bson:"role,omitempty" json:"role,omitempty"`
}
