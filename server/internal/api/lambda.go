package api

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
)

// FromProxyRequest converts an API Gateway proxy event into a Request.
func FromProxyRequest(ev events.APIGatewayProxyRequest) Request {
	return Request{
		HTTPMethod:            ev.HTTPMethod,
		Resource:              ev.Resource,
		Path:                  ev.Path,
		PathParameters:        ev.PathParameters,
		QueryStringParameters: ev.QueryStringParameters,
		Body:                  ev.Body,
		IsBase64Encoded:       ev.IsBase64Encoded,
	}
}

// ToProxyResponse converts a Response into an API Gateway proxy response.
func ToProxyResponse(resp Response) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}
}

// LambdaHandler returns a handler for lambda.Start. Store failures are
// returned to the Lambda runtime, which reports them as 5xx.
func LambdaHandler(d *Dispatcher) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		slog.Info("api: invocation",
			"method", ev.HTTPMethod,
			"resource", ev.Resource,
			"path_parameters", ev.PathParameters,
			"query", ev.QueryStringParameters,
		)

		resp, err := d.Dispatch(ctx, FromProxyRequest(ev))
		if err != nil {
			slog.Error("api: invocation failed", "resource", ev.Resource, "err", err)
			return events.APIGatewayProxyResponse{}, err
		}
		return ToProxyResponse(resp), nil
	}
}
