// lambda.go
package searchcore

import (
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

var (
	// Global Lambda-optimized client for warm-start connection reuse
	globalLambdaClient *LambdaClient
	lambdaOnce         sync.Once
)

// LambdaClient wraps Client with Lambda-specific optimizations.
type LambdaClient struct {
	*Client
	isLambda       bool
	lambdaMemoryMB int
}

// NewLambdaOptimized creates a Lambda-optimized client. Warm starts
// reuse the global instance and its pooled connections.
func NewLambdaOptimized(cfg Config) (*LambdaClient, error) {
	if globalLambdaClient != nil {
		return globalLambdaClient, nil
	}

	var err error
	lambdaOnce.Do(func() {
		globalLambdaClient, err = createLambdaClient(cfg)
	})
	if err != nil {
		return nil, err
	}
	return globalLambdaClient, nil
}

func createLambdaClient(cfg Config) (*LambdaClient, error) {
	httpClient := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DisableKeepAlives:   false, // Keep connections alive for reuse
		},
	}

	if cfg.Region == "" {
		cfg.Region = getRegion()
	}
	cfg.AWSConfigOptions = append(cfg.AWSConfigOptions,
		config.WithHTTPClient(httpClient),
		config.WithRetryMode(aws.RetryModeAdaptive),
		config.WithRetryMaxAttempts(3),
	)

	client, err := New(cfg)
	if err != nil {
		return nil, err
	}

	return &LambdaClient{
		Client:         client,
		isLambda:       IsLambdaEnvironment(),
		lambdaMemoryMB: GetLambdaMemoryMB(),
	}, nil
}

// IsLambdaEnvironment detects if running in AWS Lambda
func IsLambdaEnvironment() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// GetLambdaMemoryMB returns the allocated memory in MB
func GetLambdaMemoryMB() int {
	memStr := os.Getenv("AWS_LAMBDA_FUNCTION_MEMORY_SIZE")
	if memStr == "" {
		return 0
	}

	mem, err := strconv.Atoi(memStr)
	if err != nil {
		return 0
	}
	return mem
}

// getRegion returns the AWS region from environment
func getRegion() string {
	if region := os.Getenv("AWS_REGION"); region != "" {
		return region
	}
	if region := os.Getenv("AWS_DEFAULT_REGION"); region != "" {
		return region
	}
	return "us-east-1"
}
