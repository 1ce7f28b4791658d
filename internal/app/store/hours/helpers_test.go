package hoursstore_test

import (
	"github.com/dalemusser/safetyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func hoursRecord(month string) models.HoursRecord {
	return models.HoursRecord{EmployerID: primitive.NewObjectID(), Month: month, EmployerHours: 100}
}
