package dynamodb

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	tasktypes "github.com/obsidianstack/taskapi/pkg/types"
)

// toItem converts a JSON object into a DynamoDB item.
func toItem(obj map[string]any) (map[string]types.AttributeValue, error) {
	item := make(map[string]types.AttributeValue, len(obj))
	for k, v := range obj {
		av, err := toAttr(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		item[k] = av
	}
	return item, nil
}

// toAttr converts one decoded JSON value. Numbers keep their literal text.
func toAttr(v any) (types.AttributeValue, error) {
	switch v := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: v}, nil
	case string:
		return &types.AttributeValueMemberS{Value: v}, nil
	case json.Number:
		return &types.AttributeValueMemberN{Value: v.String()}, nil
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(v, 'f', -1, 64)}, nil
	case int:
		return &types.AttributeValueMemberN{Value: strconv.Itoa(v)}, nil
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}, nil
	case []any:
		list := make([]types.AttributeValue, len(v))
		for i, e := range v {
			av, err := toAttr(e)
			if err != nil {
				return nil, err
			}
			list[i] = av
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case map[string]any:
		m, err := toItem(v)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case tasktypes.Task:
		return toAttr(map[string]any(v))
	case tasktypes.Cursor:
		return toAttr(map[string]any(v))
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// fromItem converts a DynamoDB item into a JSON object.
func fromItem(item map[string]types.AttributeValue) (map[string]any, error) {
	obj := make(map[string]any, len(item))
	for k, av := range item {
		v, err := fromAttr(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		obj[k] = v
	}
	return obj, nil
}

// fromAttr converts one attribute value. Numbers become json.Number and
// binary values marshal as base64 strings.
func fromAttr(av types.AttributeValue) (any, error) {
	switch av := av.(type) {
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberBOOL:
		return av.Value, nil
	case *types.AttributeValueMemberS:
		return av.Value, nil
	case *types.AttributeValueMemberN:
		return json.Number(av.Value), nil
	case *types.AttributeValueMemberB:
		return av.Value, nil
	case *types.AttributeValueMemberSS:
		out := make([]any, len(av.Value))
		for i, s := range av.Value {
			out[i] = s
		}
		return out, nil
	case *types.AttributeValueMemberNS:
		out := make([]any, len(av.Value))
		for i, n := range av.Value {
			out[i] = json.Number(n)
		}
		return out, nil
	case *types.AttributeValueMemberBS:
		out := make([]any, len(av.Value))
		for i, b := range av.Value {
			out[i] = b
		}
		return out, nil
	case *types.AttributeValueMemberL:
		out := make([]any, len(av.Value))
		for i, e := range av.Value {
			v, err := fromAttr(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *types.AttributeValueMemberM:
		return fromItem(av.Value)
	default:
		return nil, fmt.Errorf("unsupported attribute type %T", av)
	}
}
