package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-kart/internal/coupon"
)

const invalidCouponMessage = "invalid or expired coupon code"

// verifyResponse mirrors the coupon-verify wire shape.
type verifyResponse struct {
	isActive bool
	hasCode  bool
	code     string
	typ      string
	rate     string
	message  string
}

// VerifyCoupon verifies the code against the backend and returns an active
// discount descriptor. The code travels verbatim; no case normalization.
//
// Fail closed: any response that does not explicitly mark the coupon active
// with a complete discount payload comes back as a *RejectedError. Network
// and decode failures come back as plain errors, retryable by the user.
func (c *Client) VerifyCoupon(ctx context.Context, code string) (*coupon.Descriptor, error) {
	if c.prefilter != nil && !c.prefilter.TestString(code) {
		// Known-impossible code; skip the round trip.
		return nil, reject("", invalidCouponMessage)
	}

	status, body, err := c.get(ctx, "/coupon/"+url.PathEscape(code)+"/verify", nil)
	if err != nil {
		return nil, err
	}

	switch {
	case status >= 200 && status < 300:
	case status == http.StatusNotFound, status == http.StatusUnprocessableEntity:
		resp, derr := decodeVerifyResponse(body)
		if derr != nil {
			return nil, reject("", invalidCouponMessage)
		}
		return nil, reject(resp.message, invalidCouponMessage)
	default:
		return nil, errors.Errorf("coupon verify: unexpected status %d", status)
	}

	resp, err := decodeVerifyResponse(body)
	if err != nil {
		return nil, errors.Wrap(err, "decode coupon verify response")
	}

	if !resp.isActive || !resp.hasCode {
		return nil, reject(resp.message, invalidCouponMessage)
	}

	rate, err := decimal.NewFromString(resp.rate)
	if err != nil || rate.IsNegative() {
		// Malformed discount payload counts as rejection, not application.
		return nil, reject(resp.message, invalidCouponMessage)
	}

	desc := &coupon.Descriptor{
		Code:   resp.code,
		Type:   coupon.DiscountType(resp.typ),
		Rate:   rate,
		Active: true,
	}
	switch desc.Type {
	case coupon.DiscountFixed, coupon.DiscountPercentage:
	default:
		return nil, reject(resp.message, invalidCouponMessage)
	}
	return desc, nil
}

func decodeVerifyResponse(body []byte) (verifyResponse, error) {
	var resp verifyResponse
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "is_active":
			v, err := d.Bool()
			if err != nil {
				return errors.Wrap(err, "is_active")
			}
			resp.isActive = v
		case "message":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "message")
			}
			resp.message = v
		case "discount":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "discount_code":
					v, err := d.Str()
					if err != nil {
						return errors.Wrap(err, "discount_code")
					}
					resp.code = v
					resp.hasCode = true
				case "discount_type":
					v, err := d.Str()
					if err != nil {
						return errors.Wrap(err, "discount_type")
					}
					resp.typ = v
				case "discount_rate":
					v, err := decodeStringOrNumber(d)
					if err != nil {
						return errors.Wrap(err, "discount_rate")
					}
					resp.rate = v
				default:
					return d.Skip()
				}
				return nil
			})
		default:
			return d.Skip()
		}
		return nil
	})
	return resp, err
}

// decodeStringOrNumber tolerates the rate arriving as "10" or 10.
func decodeStringOrNumber(d *jx.Decoder) (string, error) {
	if d.Next() == jx.String {
		return d.Str()
	}
	n, err := d.Num()
	if err != nil {
		return "", err
	}
	return n.String(), nil
}
