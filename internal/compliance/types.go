package compliance

import "time"

var (
	SHIELD_PROTECTION_TYPE string = "AWS::Shield::Protection"
	OVERSIZED_NOTIFICATION string = "OversizedConfigurationItemChangeNotification"
	OPT_IN_TAG             string = "EnableShieldAutomaticMitigation"
	STATUS_OK              string = "OK"
	STATUS_DISCOVERED      string = "ResourceDiscovered"
)

// InvokingEvent is the decoded invokingEvent string of a Config rule event.
type InvokingEvent struct {
	MessageType              string                    `json:"messageType"`
	ConfigurationItem        *ConfigurationItem        `json:"configurationItem"`
	ConfigurationItemSummary *ConfigurationItemSummary `json:"configurationItemSummary"`
}

type ConfigurationItem struct {
	AWSAccountID                 string                  `json:"awsAccountId"`
	ARN                          string                  `json:"ARN"`
	ResourceType                 string                  `json:"resourceType"`
	ResourceID                   string                  `json:"resourceId"`
	ConfigurationItemStatus      string                  `json:"configurationItemStatus"`
	ConfigurationItemCaptureTime time.Time               `json:"configurationItemCaptureTime"`
	Configuration                ProtectionConfiguration `json:"configuration"`
}

// ConfigurationItemSummary replaces the item when it is too large to inline.
type ConfigurationItemSummary struct {
	ResourceType                 string    `json:"resourceType"`
	ResourceID                   string    `json:"resourceId"`
	ConfigurationItemCaptureTime time.Time `json:"configurationItemCaptureTime"`
}

type ProtectionConfiguration struct {
	ApplicationLayerAutomaticResponseConfig *AutomaticResponseConfig `json:"ApplicationLayerAutomaticResponseConfig"`
}

type AutomaticResponseConfig struct {
	Status string `json:"Status"`
}

// RuleParameters is the decoded ruleParameters string of a Config rule event.
type RuleParameters struct {
	ApplicationLayerAutomaticResponseConfiguration string `json:"ApplicationLayerAutomaticResponseConfiguration"`
}

func (c ProtectionConfiguration) automaticResponseStatus() string {
	if c.ApplicationLayerAutomaticResponseConfig == nil {
		return ""
	}

	return c.ApplicationLayerAutomaticResponseConfig.Status
}
