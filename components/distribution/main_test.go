package distribution

import (
	"testing"

	"github.com/Weird-Sheep-Labs/weirdsheeplabs-cdn/components/config"
	"github.com/Weird-Sheep-Labs/weirdsheeplabs-cdn/components/storage"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCertificateArn = "arn:aws:acm:us-east-1:123456789012:certificate/abc"

func testConfig(t *testing.T, domain map[string]string) *config.Config {
	t.Helper()

	values := map[string]string{
		config.KeyBucketName:     "cdn-assets-1",
		config.KeyCertificateArn: testCertificateArn,
		config.KeyHostedZoneId:   "Z123",
		config.KeyHostedZoneName: "example.com",
		config.KeyDeployAccount:  "123456789012",
		config.KeyDeployRegion:   "eu-west-2",
	}
	for k, v := range domain {
		values[k] = v
	}

	cfg, err := config.Load(config.MapLookup(values))
	require.NoError(t, err)
	return cfg
}

func synth(t *testing.T, cfg *config.Config) (*Distribution, assertions.Template) {
	t.Helper()

	app := awscdk.NewApp(nil)
	stack := awscdk.NewStack(app, jsii.String("DistributionTestStack"), &awscdk.StackProps{
		Env: &awscdk.Environment{
			Account: jsii.String(cfg.Account),
			Region:  jsii.String(cfg.Region),
		},
	})
	d := NewDistribution(stack, cfg, storage.NewStorage(stack, cfg))
	return d, assertions.Template_FromStack(stack, nil)
}

func TestNewDistribution_BindsDomainAndCertificate(t *testing.T) {
	d, template := synth(t, testConfig(t, map[string]string{config.KeySubdomain: "cdn"}))
	require.NotNil(t, d.Distribution)
	assert.Equal(t, testCertificateArn, *d.Certificate.CertificateArn())

	template.ResourceCountIs(jsii.String("AWS::CloudFront::Distribution"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::CloudFront::Distribution"), map[string]interface{}{
		"DistributionConfig": map[string]interface{}{
			"Aliases":     []interface{}{"cdn.example.com"},
			"Comment":     config.DefaultProjectTag,
			"HttpVersion": "http2and3",
			"ViewerCertificate": map[string]interface{}{
				"AcmCertificateArn": testCertificateArn,
				"SslSupportMethod":  "sni-only",
			},
			"DefaultCacheBehavior": map[string]interface{}{
				"ViewerProtocolPolicy":  "redirect-to-https",
				"OriginRequestPolicyId": assertions.Match_AnyValue(),
			},
		},
	})
}

func TestNewDistribution_FullDomainAlias(t *testing.T) {
	_, template := synth(t, testConfig(t, map[string]string{config.KeyDomainName: "static.example.com"}))

	template.HasResourceProperties(jsii.String("AWS::CloudFront::Distribution"), map[string]interface{}{
		"DistributionConfig": map[string]interface{}{
			"Aliases": []interface{}{"static.example.com"},
		},
	})
}

func TestNewDistribution_BucketIsSoleOrigin(t *testing.T) {
	_, template := synth(t, testConfig(t, map[string]string{config.KeySubdomain: "cdn"}))

	template.ResourceCountIs(jsii.String("AWS::CloudFront::OriginAccessControl"), jsii.Number(1))

	distributions := template.FindResources(jsii.String("AWS::CloudFront::Distribution"), nil)
	require.Len(t, *distributions, 1)
	for _, resource := range *distributions {
		props := (*resource)["Properties"].(map[string]interface{})
		origins := props["DistributionConfig"].(map[string]interface{})["Origins"].([]interface{})
		require.Len(t, origins, 1)

		origin := origins[0].(map[string]interface{})
		assert.Contains(t, origin, "S3OriginConfig")
		assert.Contains(t, origin, "OriginAccessControlId")
	}
}

func TestNewDistribution_GrantsCloudFrontReadOnSameBucketPolicy(t *testing.T) {
	_, template := synth(t, testConfig(t, map[string]string{config.KeySubdomain: "cdn"}))

	template.ResourceCountIs(jsii.String("AWS::S3::BucketPolicy"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::S3::BucketPolicy"), map[string]interface{}{
		"PolicyDocument": map[string]interface{}{
			"Statement": assertions.Match_ArrayWith(&[]interface{}{
				assertions.Match_ObjectLike(&map[string]interface{}{
					"Action":    "s3:GetObject",
					"Principal": map[string]interface{}{"Service": "cloudfront.amazonaws.com"},
				}),
			}),
		},
	})
}
