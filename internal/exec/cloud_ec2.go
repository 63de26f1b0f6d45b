package exec

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/komodo-io/komodo-core/internal/domain"
)

// ec2Builder implements CloudBuilder against AWS EC2 (spec §4.7 "Cloud
// provisioning (EC2 example...)"). The aws-sdk-go-v2 family is reused from
// the jordigilh-kubernaut example (there for Bedrock auth); EC2 is a
// natural extension Komodo needs that the pack otherwise carries no SDK
// for (see DESIGN.md).
type ec2Builder struct {
	client *ec2.Client
}

// NewEC2Builder loads AWS credentials via the default provider chain
// (environment, shared config, IMDS) and builds an EC2 CloudBuilder.
func NewEC2Builder(ctx context.Context) (*ec2Builder, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &ec2Builder{client: ec2.NewFromConfig(cfg)}, nil
}

func (b *ec2Builder) Provision(cfg domain.BuilderConfig, tagName string) (string, string, error) {
	ctx := context.Background()

	var blockDevices []ec2types.BlockDeviceMapping
	for i, vol := range cfg.Volumes {
		blockDevices = append(blockDevices, ec2types.BlockDeviceMapping{
			DeviceName: aws.String(vol.DeviceName),
			Ebs: &ec2types.EbsBlockDevice{
				VolumeSize: aws.Int32(int32(vol.SizeGB)),
			},
		})
		_ = i
	}

	var userData string
	if cfg.UserData != "" {
		userData = base64.StdEncoding.EncodeToString([]byte(cfg.UserData))
	}

	out, err := b.client.RunInstances(ctx, &ec2.RunInstancesInput{
		ImageId:            aws.String(cfg.AMIId),
		InstanceType:       ec2types.InstanceType(cfg.InstanceType),
		MinCount:           aws.Int32(1),
		MaxCount:           aws.Int32(1),
		SubnetId:           aws.String(cfg.SubnetId),
		SecurityGroupIds:   cfg.SecurityGroupIds,
		KeyName:            aws.String(cfg.KeyPairName),
		BlockDeviceMappings: blockDevices,
		UserData:           aws.String(userData),
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeInstance,
			Tags:         []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String(tagName)}},
		}},
	})
	if err != nil {
		return "", "", fmt.Errorf("run instances: %w", err)
	}
	if len(out.Instances) == 0 {
		return "", "", fmt.Errorf("run instances returned no instances")
	}
	instanceId := aws.ToString(out.Instances[0].InstanceId)

	ip, err := b.awaitAddress(ctx, instanceId, cfg.UsePublicIp || cfg.AssignPublicIp)
	if err != nil {
		return instanceId, "", err
	}
	return instanceId, ip, nil
}

func (b *ec2Builder) PollRunning(instanceId string) error {
	ctx := context.Background()
	var lastState string
	for i := 0; i < provisionPollAttempts; i++ {
		out, err := b.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			InstanceIds: []string{instanceId},
		})
		if err == nil && len(out.Reservations) > 0 && len(out.Reservations[0].Instances) > 0 {
			state := out.Reservations[0].Instances[0].State
			if state != nil {
				lastState = string(state.Name)
				if state.Name == ec2types.InstanceStateNameRunning {
					return nil
				}
			}
		}
		time.Sleep(provisionPollInterval)
	}
	return fmt.Errorf("instance %s did not reach Running after %d polls (last state: %s)", instanceId, provisionPollAttempts, lastState)
}

// awaitAddress polls DescribeInstances for the requested IP kind, since the
// address is not always populated in the RunInstances response.
func (b *ec2Builder) awaitAddress(ctx context.Context, instanceId string, usePublic bool) (string, error) {
	for i := 0; i < provisionPollAttempts; i++ {
		out, err := b.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			InstanceIds: []string{instanceId},
		})
		if err == nil && len(out.Reservations) > 0 && len(out.Reservations[0].Instances) > 0 {
			inst := out.Reservations[0].Instances[0]
			if usePublic && inst.PublicIpAddress != nil {
				return aws.ToString(inst.PublicIpAddress), nil
			}
			if !usePublic && inst.PrivateIpAddress != nil {
				return aws.ToString(inst.PrivateIpAddress), nil
			}
		}
		time.Sleep(provisionPollInterval)
	}
	return "", fmt.Errorf("instance %s did not report an address in time", instanceId)
}

func (b *ec2Builder) Terminate(instanceId string) error {
	return retryTeardown(func() error {
		_, err := b.client.TerminateInstances(context.Background(), &ec2.TerminateInstancesInput{
			InstanceIds: []string{instanceId},
		})
		return err
	})
}
