package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Amount is a decimal quantity or price. It is stored in MongoDB as Decimal128
// and travels through JSON as a number or numeric string.
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func AmountFromInt(v int64) Amount {
	return Amount{Decimal: decimal.NewFromInt(v)}
}

// MustAmount parses s and panics on malformed input. Intended for literals.
func MustAmount(s string) Amount {
	return Amount{Decimal: decimal.RequireFromString(s)}
}

// Money formats the amount with two decimal places.
func (a Amount) Money() string {
	return a.StringFixed(2)
}

func (a Amount) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d, err := primitive.ParseDecimal128(a.String())
	if err != nil {
		return 0, nil, fmt.Errorf("amount %s: %w", a.String(), err)
	}
	return bson.MarshalValue(d)
}

func (a *Amount) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Null, bsontype.Undefined:
		a.Decimal = decimal.Zero
		return nil
	case bsontype.Decimal128:
		d, err := decimal.NewFromString(raw.Decimal128().String())
		if err != nil {
			return err
		}
		a.Decimal = d
		return nil
	case bsontype.Double:
		a.Decimal = decimal.NewFromFloat(raw.Double())
		return nil
	case bsontype.Int32:
		a.Decimal = decimal.NewFromInt32(raw.Int32())
		return nil
	case bsontype.Int64:
		a.Decimal = decimal.NewFromInt(raw.Int64())
		return nil
	case bsontype.String:
		d, err := decimal.NewFromString(raw.StringValue())
		if err != nil {
			return err
		}
		a.Decimal = d
		return nil
	}
	return fmt.Errorf("cannot decode %s into Amount", t)
}
