package validators

import "go.mongodb.org/mongo-driver/bson"

var SessionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_id",
			"owner_id",
			"sequence_number",
			"date",
			"time",
			"scheduled_at",
			"unit_price_minor",
			"status",
			"payment_status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"sequence_number": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},

			"date": bson.M{
				"bsonType": "date",
			},

			"scheduled_at": bson.M{
				"bsonType": "date",
			},

			"unit_price_minor": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"PENDING",
					"ASSIGNED",
					"CONFIRMED",
					"UPCOMING",
					"ONGOING",
					"COMPLETED",
					"CANCELLED",
					"USERCANCELLED",
				},
			},

			"payment_status": bson.M{
				"bsonType": "string",
				"enum":     []string{"PENDING", "PAID", "REFUNDED"},
			},

			"actual_duration_min": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},
		},
	},
}

var ServiceCodeValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"session_id",
			"type",
			"sealed_code",
			"used",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"type": bson.M{
				"bsonType": "string",
				"enum":     []string{"START", "END"},
			},

			"sealed_code": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"used": bson.M{
				"bsonType": "bool",
			},

			"used_at": bson.M{
				"bsonType": "date",
			},

			"expires_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
