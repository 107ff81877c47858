package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-kart/internal/money"
)

// ProductRef identifies a cart line for the shipping and order endpoints.
type ProductRef struct {
	ID       int64
	Quantity int
}

// ShippingQuery carries the address and cart fields the shipping-rate
// endpoint prices against.
type ShippingQuery struct {
	Street    string
	City      string
	State     string
	Zip       string
	Firstname string
	Lastname  string
	Email     string
	Phone     string
	Country   string
	IP        string
	Products  []ProductRef
	Note      string
}

// ShippingRate asks the backend to price shipping for the given address and
// cart. Business refusals (unserviceable address) surface as *RejectedError.
func (c *Client) ShippingRate(ctx context.Context, q ShippingQuery) (money.Amount, error) {
	status, body, err := c.get(ctx, "/shipping/rates", q.values())
	if err != nil {
		return money.Zero, err
	}

	switch {
	case status >= 200 && status < 300:
	case status == http.StatusNotFound, status == http.StatusUnprocessableEntity:
		return money.Zero, reject(decodeMessage(body), "shipping unavailable for this address")
	default:
		return money.Zero, errors.Errorf("shipping rate: unexpected status %d", status)
	}

	cost, found, err := decodeShippingCost(body)
	if err != nil {
		return money.Zero, errors.Wrap(err, "decode shipping rate response")
	}
	if !found {
		return money.Zero, reject(decodeMessage(body), "shipping unavailable for this address")
	}
	return cost, nil
}

func (q ShippingQuery) values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("street", q.Street)
	set("city", q.City)
	set("state", q.State)
	set("zip", q.Zip)
	set("firstname", q.Firstname)
	set("lastname", q.Lastname)
	set("email", q.Email)
	set("phone", q.Phone)
	set("country", q.Country)
	set("ip", q.IP)
	set("note", q.Note)
	v.Set("products", string(encodeProducts(q.Products)))
	return v
}

func encodeProducts(refs []ProductRef) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, ref := range refs {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(ref.ID)
		e.FieldStart("quantity")
		e.Int(ref.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

func decodeShippingCost(body []byte) (money.Amount, bool, error) {
	var (
		cost  money.Amount
		found bool
	)
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "total_shipping_cost" {
			return d.Skip()
		}
		n, err := d.Num()
		if err != nil {
			return errors.Wrap(err, "total_shipping_cost")
		}
		dec, err := decimal.NewFromString(n.String())
		if err != nil {
			return errors.Wrap(err, "total_shipping_cost")
		}
		cost, err = money.FromDecimal(dec)
		if err != nil {
			return errors.Wrap(err, "total_shipping_cost")
		}
		found = true
		return nil
	})
	return cost, found, err
}

// decodeMessage best-effort extracts a "message" field; empty on any error.
func decodeMessage(body []byte) string {
	var msg string
	d := jx.DecodeBytes(body)
	_ = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "message" || d.Next() != jx.String {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		msg = v
		return nil
	})
	return msg
}
