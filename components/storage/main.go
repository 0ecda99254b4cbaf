package storage

import (
	"fmt"

	"github.com/Weird-Sheep-Labs/weirdsheeplabs-cdn/components/config"

	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// CorsMaxAgeSeconds is how long browsers may cache a preflight response.
const CorsMaxAgeSeconds = 300

type Storage struct {
	Bucket       awss3.Bucket
	AccessPolicy awsiam.PolicyStatement
}

func NewStorage(stack constructs.Construct, cfg *config.Config) *Storage {
	// コンテンツ用バケット
	bucket := awss3.NewBucket(stack, jsii.String("CdnBucket"), &awss3.BucketProps{
		BucketName:        jsii.String(cfg.BucketName),
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		AccessControl:     awss3.BucketAccessControl_PRIVATE,
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		Cors: &[]*awss3.CorsRule{
			{
				AllowedMethods: &[]awss3.HttpMethods{awss3.HttpMethods_GET, awss3.HttpMethods_HEAD},
				AllowedOrigins: jsii.Strings("*"),
				AllowedHeaders: jsii.Strings("*"),
				MaxAge:         jsii.Number(CorsMaxAgeSeconds),
			},
		},
	})

	// デプロイするアカウントのIAM/STSプリンシパルに限定
	accessPolicy := awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:     awsiam.Effect_ALLOW,
		Actions:    jsii.Strings("s3:*"),
		Principals: &[]awsiam.IPrincipal{awsiam.NewAnyPrincipal()},
		Resources: &[]*string{
			bucket.BucketArn(),
			bucket.ArnForObjects(jsii.String("*")),
		},
		Conditions: &map[string]interface{}{
			"StringLike": map[string]interface{}{
				"aws:PrincipalArn": PrincipalArnPatterns(cfg),
			},
		},
	})

	bucket.AddToResourcePolicy(accessPolicy)

	return &Storage{
		Bucket:       bucket,
		AccessPolicy: accessPolicy,
	}
}

// PrincipalArnPatterns matches every IAM principal and every assumed-role
// session (SSO included) of the deploying account.
func PrincipalArnPatterns(cfg *config.Config) []string {
	return []string{
		fmt.Sprintf("arn:%s:iam::%s:*", cfg.Partition(), cfg.Account),
		fmt.Sprintf("arn:%s:sts::%s:*", cfg.Partition(), cfg.Account),
	}
}
