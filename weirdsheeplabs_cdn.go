package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Weird-Sheep-Labs/weirdsheeplabs-cdn/components/config"
	"github.com/Weird-Sheep-Labs/weirdsheeplabs-cdn/components/distribution"
	"github.com/Weird-Sheep-Labs/weirdsheeplabs-cdn/components/dns"
	"github.com/Weird-Sheep-Labs/weirdsheeplabs-cdn/components/storage"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// ProjectTagKey is applied to every taggable resource in the stack.
const ProjectTagKey = "Project"

var ErrNoConfig = errors.New("cdn stack: no configuration")

type CdnStackProps struct {
	awscdk.StackProps
	Config *config.Config
}

// NewCdnStack declares the bucket, distribution and DNS records described by
// props.Config. An invalid config returns an error before anything is added to
// scope.
func NewCdnStack(scope constructs.Construct, id string, props *CdnStackProps) (awscdk.Stack, error) {
	if props == nil || props.Config == nil {
		return nil, ErrNoConfig
	}
	cfg := props.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sprops := props.StackProps
	stack := awscdk.NewStack(scope, &id, &sprops)

	storage := storage.NewStorage(stack, cfg)

	distribution := distribution.NewDistribution(stack, cfg, storage)

	dns.NewDNS(stack, cfg, distribution)

	awscdk.NewCfnOutput(stack, jsii.String("BucketName"), &awscdk.CfnOutputProps{
		Value:       storage.Bucket.BucketName(),
		Description: jsii.String("Content bucket"),
	})
	awscdk.NewCfnOutput(stack, jsii.String("DistributionId"), &awscdk.CfnOutputProps{
		Value:       distribution.Distribution.DistributionId(),
		Description: jsii.String("CloudFront distribution id, used for invalidations"),
	})
	awscdk.NewCfnOutput(stack, jsii.String("DistributionDomainName"), &awscdk.CfnOutputProps{
		Value: distribution.Distribution.DistributionDomainName(),
	})
	awscdk.NewCfnOutput(stack, jsii.String("CdnDomainName"), &awscdk.CfnOutputProps{
		Value: jsii.String(cfg.Fqdn()),
	})

	// スタック全体にタグを付与
	awscdk.Tags_Of(stack).Add(jsii.String(ProjectTagKey), jsii.String(cfg.ProjectTag), nil)

	return stack, nil
}

func main() {
	logger := newLogger(os.Getenv("LOG_LEVEL"))

	if err := run(logger); err != nil {
		logger.Error("synth failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(logger *zap.Logger) error {
	defer jsii.Close()

	// 環境変数読み込み
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	app := awscdk.NewApp(nil)

	cfg, err := config.Load(config.ChainLookup(contextLookup(app), config.EnvLookup))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("resolved cdn configuration",
		zap.String("stack", cfg.StackName),
		zap.Stringer("strategy", cfg.Strategy()),
		zap.String("domain", cfg.Fqdn()),
		zap.String("bucket", cfg.BucketName),
		zap.String("account", cfg.Account),
		zap.String("region", cfg.Region),
	)

	if _, err := NewCdnStack(app, cfg.StackName, &CdnStackProps{
		StackProps: awscdk.StackProps{
			Env: env(cfg),
		},
		Config: cfg,
	}); err != nil {
		return fmt.Errorf("build stack: %w", err)
	}

	app.Synth(nil)
	return nil
}

func env(cfg *config.Config) *awscdk.Environment {
	return &awscdk.Environment{
		Account: jsii.String(cfg.Account),
		Region:  jsii.String(cfg.Region),
	}
}

// contextLookup reads `cdk --context key=value` overrides.
func contextLookup(app awscdk.App) config.Lookup {
	return func(key string) (string, bool) {
		v, ok := app.Node().TryGetContext(jsii.String(config.ContextKey(key))).(string)
		return v, ok && v != ""
	}
}
