package validators

import "go.mongodb.org/mongo-driver/bson"

var integer = []string{"int", "long"}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"owner_id",
			"pet_id",
			"service_id",
			"start_date",
			"end_date",
			"time_of_day",
			"recurring",
			"payment_mode",
			"payment_status",
			"unit_price_minor",
			"session_count",
			"total_amount_minor",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"owner_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"start_date": bson.M{
				"bsonType": "date",
			},

			"end_date": bson.M{
				"bsonType": "date",
			},

			"time_of_day": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"pattern": bson.M{
				"bsonType": "string",
				"pattern":  "^(weekly_[1-9][0-9]*|monthly_[1-9][0-9]*_([1-4]|last))_[a-z,]+$",
			},

			"payment_mode": bson.M{
				"bsonType": "string",
				"enum":     []string{"upfront", "per_session"},
			},

			"payment_status": bson.M{
				"bsonType": "string",
				"enum":     []string{"PENDING", "PAID", "REFUNDED"},
			},

			"unit_price_minor": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},

			"session_count": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},

			"total_amount_minor": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
