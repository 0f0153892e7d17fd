package grpc

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/vibast-solutions/ms-go-shop/app/types"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// maxExactID is the largest integer a protobuf double carries without loss.
const maxExactID = 1 << 53

var errInvalidOrderID = errors.New("order_id must be a positive integer")

type GetOrderRequest struct {
	OrderID uint64
}

func (r *GetOrderRequest) message() *wrapperspb.UInt64Value {
	return wrapperspb.UInt64(r.OrderID)
}

// UpdateOrderStatusRequest travels as a google.protobuf.Struct with the
// fields order_id and status.
type UpdateOrderStatusRequest struct {
	OrderID uint64
	Status  string
}

func (r *UpdateOrderStatusRequest) message() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"order_id": r.OrderID,
		"status":   r.Status,
	})
}

func updateOrderStatusFromMessage(in *structpb.Struct) (*UpdateOrderStatusRequest, error) {
	fields := in.GetFields()
	req := &UpdateOrderStatusRequest{Status: fields["status"].GetStringValue()}

	if value, ok := fields["order_id"]; ok {
		if _, isNumber := value.GetKind().(*structpb.Value_NumberValue); !isNumber {
			return nil, errInvalidOrderID
		}
		n := value.GetNumberValue()
		if n < 0 || n > maxExactID || n != math.Trunc(n) {
			return nil, errInvalidOrderID
		}
		req.OrderID = uint64(n)
	}
	return req, nil
}

// orderMessage converts an order into the Struct payload of the RPC. The
// field names match the JSON of the HTTP API.
func orderMessage(order *types.OrderResponse) (*structpb.Struct, error) {
	data, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}

	out := &structpb.Struct{}
	if err = protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func orderFromMessage(in *structpb.Struct) (*types.OrderResponse, error) {
	data, err := protojson.Marshal(in)
	if err != nil {
		return nil, err
	}

	out := &types.OrderResponse{}
	if err = json.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}
