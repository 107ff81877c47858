package backend

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// SubmitResult is the backend's answer to a successful order submission.
type SubmitResult struct {
	// RedirectLink points at the payment/confirmation page when the backend
	// wants the user redirected. May be empty.
	RedirectLink string
}

// SubmitOrder submits the order described by the shipping query fields plus
// the device identifier. The backend owns payment capture and inventory;
// the caller's only post-condition on success is clearing the cart.
func (c *Client) SubmitOrder(ctx context.Context, q ShippingQuery) (*SubmitResult, error) {
	values := q.values()
	values.Set("device_name", c.userAgent)

	status, body, err := c.get(ctx, "/processing-order", values)
	if err != nil {
		return nil, err
	}

	switch {
	case status >= 200 && status < 300:
	case status >= 400 && status < 500:
		return nil, reject(decodeMessage(body), "order could not be processed")
	default:
		return nil, errors.Errorf("submit order: unexpected status %d", status)
	}

	var result SubmitResult
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "redirect_link" || d.Next() != jx.String {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return errors.Wrap(err, "redirect_link")
		}
		result.RedirectLink = v
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode order response")
	}
	return &result, nil
}
