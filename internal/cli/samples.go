package cli

import "certquiz-service/internal/domain"

// sampleQuestions seeds the in-memory loader when Postgres is not configured.
func sampleQuestions() []domain.QuestionRef {
	return []domain.QuestionRef{
		{
			ID:       "CP_0001",
			Category: "Cloud Practitioner",
			Prompt:   "Which AWS service provides object storage?",
			Options: []domain.Option{
				{Label: "A", Text: "Amazon EC2"},
				{Label: "B", Text: "Amazon S3"},
				{Label: "C", Text: "Amazon RDS"},
				{Label: "D", Text: "AWS Lambda"},
			},
			CanonicalAnswer: "B",
			Explanation:     "Amazon S3 is object storage.",
		},
		{
			ID:       "CP_0002",
			Category: "Cloud Practitioner",
			Prompt:   "Which services let you run code without provisioning servers? (Select TWO)",
			Options: []domain.Option{
				{Label: "A", Text: "AWS Lambda"},
				{Label: "B", Text: "Amazon EC2"},
				{Label: "C", Text: "AWS Fargate"},
				{Label: "D", Text: "Amazon Lightsail"},
				{Label: "E", Text: "AWS Outposts"},
			},
			CanonicalAnswer: "AC",
		},
		{
			ID:       "CP_0003",
			Category: "Cloud Practitioner",
			Prompt:   "Under the shared responsibility model, who patches the guest OS on EC2?",
			Options: []domain.Option{
				{Label: "A", Text: "AWS"},
				{Label: "B", Text: "The customer"},
			},
			CanonicalAnswer: "B",
		},
		{
			ID:       "DE_0001",
			Category: "Data Engineer",
			Prompt:   "Which service is a managed Apache Kafka offering?",
			Options: []domain.Option{
				{Label: "A", Text: "Amazon Kinesis Data Streams"},
				{Label: "B", Text: "Amazon MSK"},
				{Label: "C", Text: "Amazon SQS"},
			},
			CanonicalAnswer: "B",
		},
	}
}
