package main

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"astraea-backend/infrastructure/config"
	"astraea-backend/infrastructure/di"
	"astraea-backend/interfaces/http/rest"
)

// Lambda lifecycle state, built once per container.
var (
	chiLambda     *chiadapter.ChiLambdaV2
	container     *di.Container
	coldStart     = true
	coldStartTime time.Time
)

// init runs during cold start.
func init() {
	coldStartTime = time.Now()

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	// The router trusts gateway identity headers only in Lambda mode.
	cfg.IsLambda = true

	container, err = di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	handler := rest.NewRouter(container).Setup()
	chiRouter, ok := handler.(*chi.Mux)
	if !ok {
		log.Fatal("Failed to cast handler to chi.Mux")
	}
	chiLambda = chiadapter.NewV2(chiRouter)

	coldStartDuration := time.Since(coldStartTime)
	container.Logger.Info("lambda cold start completed",
		zap.Duration("duration", coldStartDuration),
	)
	if cfg.ColdStartTimeout > 0 && coldStartDuration > time.Duration(cfg.ColdStartTimeout)*time.Millisecond {
		container.Logger.Warn("cold start exceeded budget",
			zap.Duration("duration", coldStartDuration),
			zap.Int("budget_ms", cfg.ColdStartTimeout),
		)
	}
}

// identityHeaders are stamped from the gateway authorizer; any client-sent
// values must be stripped first or callers could impersonate other users.
var identityHeaders = []string{
	"x-user-id", "X-User-ID",
	"x-user-email", "X-User-Email",
	"x-user-role", "X-User-Role",
}

// Handler proxies API Gateway v2 requests into the chi router. The JWT has
// already been validated by the gateway authorizer; this layer only lifts
// the claims into the identity headers the auth middleware reads.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}

	for _, name := range identityHeaders {
		delete(req.Headers, name)
	}

	if jwt := req.RequestContext.Authorizer; jwt != nil && jwt.JWT != nil {
		claims := jwt.JWT.Claims
		req.Headers["X-User-ID"] = claims["sub"]
		req.Headers["X-User-Email"] = claims["email"]
		if role, ok := claims["role"]; ok {
			req.Headers["X-User-Role"] = role
		}
	}

	start := time.Now()
	resp, err := chiLambda.ProxyWithContextV2(ctx, req)
	container.CloudWatch.RecordLatency(ctx, "api_proxy", time.Since(start))

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	if coldStart {
		resp.Headers["X-Cold-Start"] = "true"
		resp.Headers["X-Cold-Start-Duration"] = time.Since(coldStartTime).String()
		coldStart = false
	}
	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Lambda-Request-ID"] = req.RequestContext.RequestID
	}

	if resp.StatusCode >= 500 {
		container.Logger.Error("lambda error response",
			zap.String("method", req.RequestContext.HTTP.Method),
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("request_id", req.RequestContext.RequestID),
		)
	}

	return resp, err
}

func main() {
	lambda.Start(Handler)
}
