package distribution

import (
	"github.com/Weird-Sheep-Labs/weirdsheeplabs-cdn/components/config"
	"github.com/Weird-Sheep-Labs/weirdsheeplabs-cdn/components/storage"

	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfrontorigins"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

type Distribution struct {
	Certificate  awscertificatemanager.ICertificate
	Distribution awscloudfront.Distribution
}

func NewDistribution(stack constructs.Construct, cfg *config.Config, storage *storage.Storage) *Distribution {
	// 既存のACM証明書を参照 (us-east-1)
	certificate := awscertificatemanager.Certificate_FromCertificateArn(stack, jsii.String("CdnCertificate"), jsii.String(cfg.CertificateArn))

	// バケットをOACでオリジンに設定
	origin := awscloudfrontorigins.S3BucketOrigin_WithOriginAccessControl(storage.Bucket, nil)

	distribution := awscloudfront.NewDistribution(stack, jsii.String("CdnDistribution"), &awscloudfront.DistributionProps{
		Comment:     jsii.String(cfg.ProjectTag),
		DomainNames: jsii.Strings(cfg.Fqdn()),
		Certificate: certificate,
		HttpVersion: awscloudfront.HttpVersion_HTTP2_AND_3,
		DefaultBehavior: &awscloudfront.BehaviorOptions{
			Origin:               origin,
			ViewerProtocolPolicy: awscloudfront.ViewerProtocolPolicy_REDIRECT_TO_HTTPS,
			AllowedMethods:       awscloudfront.AllowedMethods_ALLOW_GET_HEAD(),
			CachedMethods:        awscloudfront.CachedMethods_CACHE_GET_HEAD(),
			CachePolicy:          awscloudfront.CachePolicy_CACHING_OPTIMIZED(),
			// CORSヘッダーをS3まで転送
			OriginRequestPolicy: awscloudfront.OriginRequestPolicy_CORS_S3_ORIGIN(),
		},
	})

	return &Distribution{
		Certificate:  certificate,
		Distribution: distribution,
	}
}
