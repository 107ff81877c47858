package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-kart/internal/money"
)

// The slot payload is a JSON array of line items with the storefront's
// historical field names. Prices travel in major currency units. Readers
// default missing fields and skip unknown ones, so payloads written before
// a field existed keep loading.

// Encode serializes items into the slot payload.
func Encode(items []LineItem) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, li := range items {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(li.ID)
		e.FieldStart("title")
		e.Str(li.Title)
		e.FieldStart("price")
		e.Num(jx.Num(li.UnitPrice.Decimal().String()))
		e.FieldStart("image")
		e.Str(li.Image)
		e.FieldStart("qty")
		e.Int(li.Quantity)
		if li.InStock != nil {
			e.FieldStart("stock")
			e.Bool(*li.InStock)
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

// Decode parses a slot payload. Items missing a quantity (or carrying one
// below the floor) are clamped to 1; unknown fields are ignored.
func Decode(data []byte) ([]LineItem, error) {
	d := jx.DecodeBytes(data)

	var items []LineItem
	if err := d.Arr(func(d *jx.Decoder) error {
		li, err := decodeItem(d)
		if err != nil {
			return err
		}
		if li.Quantity < 1 {
			li.Quantity = 1
		}
		items = append(items, li)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode cart payload")
	}
	return items, nil
}

func decodeItem(d *jx.Decoder) (LineItem, error) {
	var li LineItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			id, err := d.Int64()
			if err != nil {
				return errors.Wrap(err, "id")
			}
			li.ID = id
		case "title":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "title")
			}
			li.Title = s
		case "price":
			n, err := d.Num()
			if err != nil {
				return errors.Wrap(err, "price")
			}
			dec, err := decimal.NewFromString(n.String())
			if err != nil {
				return errors.Wrap(err, "price")
			}
			price, err := money.FromDecimal(dec)
			if err != nil {
				return errors.Wrap(err, "price")
			}
			li.UnitPrice = price
		case "image":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "image")
			}
			li.Image = s
		case "qty":
			q, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "qty")
			}
			li.Quantity = q
		case "stock":
			if d.Next() == jx.Null {
				return d.Null()
			}
			b, err := d.Bool()
			if err != nil {
				return errors.Wrap(err, "stock")
			}
			li.InStock = &b
		default:
			return d.Skip()
		}
		return nil
	})
	return li, err
}
