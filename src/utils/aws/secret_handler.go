package aws_handler

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
)

type SecretManager struct {
	svc *secretsmanager.SecretsManager
}

func NewSecretManager(svc *secretsmanager.SecretsManager) *SecretManager {
	return &SecretManager{svc: svc}
}

func (s *SecretManager) GetSecretValue(secretId string) (string, error) {
	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretId),
	}

	result, err := s.svc.GetSecretValue(input)
	if err != nil {
		return "", err
	}

	return *result.SecretString, nil
}

// GetSecretJSON unmarshals a JSON-encoded secret into target.
// The SnapTrade credential pair is stored this way:
// {"clientId": "...", "consumerKey": "..."}.
func (s *SecretManager) GetSecretJSON(secretId string, target interface{}) error {
	value, err := s.GetSecretValue(secretId)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(value), target)
}
