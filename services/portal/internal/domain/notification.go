package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Notification struct {
	ID      bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Message string        `bson:"message" json:"message"`
	Date    time.Time     `bson:"date" json:"date"`
}

type SendMessageRequest struct {
	StudentID string `json:"studentId"`
	Message   string `json:"message"`
}

type NotificationRequest struct {
	Message string `json:"message"`
}

type FetchNotificationsRequest struct {
	AccessCode string `json:"access_code"`
}

func (r *SendMessageRequest) Validate() error {
	if len(strings.TrimSpace(r.Message)) < 5 {
		return Validation("message should be at least 5 characters")
	}
	if _, err := ParseObjectID(r.StudentID); err != nil {
		return Validation("invalid studentId")
	}
	return nil
}

func (r *NotificationRequest) Validate() error {
	if len(strings.TrimSpace(r.Message)) < 10 {
		return Validation("message should be at least 10 characters")
	}
	return nil
}
