package dns

import (
	"github.com/Weird-Sheep-Labs/weirdsheeplabs-cdn/components/config"
	"github.com/Weird-Sheep-Labs/weirdsheeplabs-cdn/components/distribution"

	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53targets"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

type DNS struct {
	HostedZone awsroute53.IHostedZone
	ARecord    awsroute53.ARecord
	AaaaRecord awsroute53.AaaaRecord
}

func NewDNS(stack constructs.Construct, cfg *config.Config, distribution *distribution.Distribution) *DNS {
	// 既存のホストゾーンを参照
	hostedZone := awsroute53.HostedZone_FromHostedZoneAttributes(stack, jsii.String("CdnHostedZone"), &awsroute53.HostedZoneAttributes{
		HostedZoneId: jsii.String(cfg.HostedZoneId),
		ZoneName:     jsii.String(cfg.HostedZoneName),
	})

	// A/AAAAの両方をCloudFrontへエイリアス
	target := awsroute53.RecordTarget_FromAlias(awsroute53targets.NewCloudFrontTarget(distribution.Distribution))

	aRecord := awsroute53.NewARecord(stack, jsii.String("CdnARecord"), &awsroute53.ARecordProps{
		Zone:       hostedZone,
		RecordName: jsii.String(cfg.Fqdn()),
		Target:     target,
	})

	aaaaRecord := awsroute53.NewAaaaRecord(stack, jsii.String("CdnAaaaRecord"), &awsroute53.AaaaRecordProps{
		Zone:       hostedZone,
		RecordName: jsii.String(cfg.Fqdn()),
		Target:     target,
	})

	return &DNS{
		HostedZone: hostedZone,
		ARecord:    aRecord,
		AaaaRecord: aaaaRecord,
	}
}
