package validators

import "go.mongodb.org/mongo-driver/bson"

var RefundIntentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"session_id",
			"requested_amount_minor",
			"deduction_percent",
			"deduction_amount_minor",
			"refund_amount_minor",
			"status",
			"attempts",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"requested_amount_minor": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},

			"deduction_amount_minor": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},

			"refund_amount_minor": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},

			"gateway_refund_id": bson.M{
				"bsonType": []string{"string", "null"},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"INITIATED", "FAILED_PENDING_MANUAL"},
			},

			"attempts": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},
		},
	},
}

var WalletValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"sitter_id",
			"balance_minor",
			"pending_amount_minor",
			"total_earnings_minor",
			"withdrawn_minor",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"sitter_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"balance_minor": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},

			"pending_amount_minor": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},

			"total_earnings_minor": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},

			"withdrawn_minor": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},
		},
	},
}

var WalletLedgerValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"wallet_id",
			"amount_minor",
			"type",
			"status",
			"available_at",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"amount_minor": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},

			"type": bson.M{
				"bsonType": "string",
				"enum":     []string{"earning", "withdrawal"},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"pending", "available", "withdrawn"},
			},

			"available_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var ServiceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"price_minor",
			"active",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"price_minor": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},

			"active": bson.M{
				"bsonType": "bool",
			},
		},
	},
}
