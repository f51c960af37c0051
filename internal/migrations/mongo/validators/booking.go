package validators

import "go.mongodb.org/mongo-driver/bson"

// BookingValidator only pins the fields the same-day rule reads. Everything
// else the CRM sends is accepted as is.
var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"start_time",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"name": bson.M{
				"bsonType":  "string",
				"maxLength": 200,
			},

			"resource_id": bson.M{
				"bsonType":  "string",
				"maxLength": 64,
			},

			"work_order_id": bson.M{
				"bsonType":  "string",
				"maxLength": 64,
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
