package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"bookingguard/pkg/model"
)

const bookingsPath = "/api/v1/bookings"

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseUrl string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

// HTTP exposes the underlying client for custom headers and timeouts.
func (c *BookingClient) HTTP() *HttpClient {
	return c.httpClient
}

func (c *BookingClient) Validate(ctx context.Context, req *model.ValidationRequest) (*model.Verdict, error) {
	resp, err := c.httpClient.POST(ctx, bookingsPath+"/validate", req, nil)
	if err != nil {
		return nil, err
	}

	var verdict model.Verdict
	if err := decodeData(resp, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

// Create posts a new booking. A non-empty idempotencyKey makes retries of the
// same call replay the first response.
func (c *BookingClient) Create(ctx context.Context, change *model.BookingChange, idempotencyKey string) (*model.Booking, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}

	resp, err := c.httpClient.POST(ctx, bookingsPath, change, headers)
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

func (c *BookingClient) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, bookingsPath+"/id/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

func (c *BookingClient) Update(ctx context.Context, id string, change *model.BookingChange) (*model.Booking, error) {
	resp, err := c.httpClient.PATCH(ctx, bookingsPath+"/id/"+url.PathEscape(id), change)
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

// Replace overwrites every field of the stored booking b.ID with the values
// in b.
func (c *BookingClient) Replace(ctx context.Context, b *model.Booking) (*model.Booking, error) {
	change := model.ChangeFrom(b)
	return c.Update(ctx, b.ID, &change)
}

func (c *BookingClient) SearchByWorkOrder(ctx context.Context, workOrderID string) ([]*model.Booking, int, error) {
	q := url.Values{}
	q.Set("work_order_id", workOrderID)

	resp, err := c.httpClient.GET(ctx, bookingsPath+"/search?"+q.Encode())
	if err != nil {
		return nil, 0, err
	}
	if !resp.IsSuccess() {
		return nil, 0, decodeError(resp)
	}

	var wrapper struct {
		Data       []*model.Booking `json:"data"`
		TotalCount int              `json:"total_count"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, 0, fmt.Errorf("could not decode booking list: %s: %w", resp.ToString(), err)
	}
	return wrapper.Data, wrapper.TotalCount, nil
}

func decodeBooking(resp *Response) (*model.Booking, error) {
	var booking model.Booking
	if err := decodeData(resp, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func decodeData(resp *Response, target any) error {
	if !resp.IsSuccess() {
		return decodeError(resp)
	}

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return fmt.Errorf("could not decode response wrapper: %s: %w", resp.ToString(), err)
	}
	if err := json.Unmarshal(wrapper.Data, target); err != nil {
		return fmt.Errorf("could not decode response data: %s: %w", resp.ToString(), err)
	}
	return nil
}
