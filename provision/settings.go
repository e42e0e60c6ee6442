package provision

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/homemade/saka/cloudbuild"
)

const (
	DefaultSourceRepo   = "saka"
	DefaultLocation     = "us-central1"
	DefaultTopicName    = "saka-trigger"
	DefaultFunctionName = "saka"
	DefaultTriggerName  = "saka-deploy"
	DefaultSchedulerJob = "saka-schedule"
	DefaultSchedule     = "0 12 * * *"
	DefaultBranch       = "^main$"
	DefaultStepDelay    = 2 * time.Second

	TriggerTypePubSub = "pubsub"
	TriggerTypeHTTP   = "http"
)

var ErrInvalidSettings = errors.New("invalid installer settings")

// Settings are read from the environment file sourced at install time.
type Settings struct {
	ProjectID    string
	SourceRepo   string
	Location     string
	TopicName    string
	TriggerType  string
	FunctionName string
	TriggerName  string
	SchedulerJob string
	Schedule     string
	Branch       string
	StepDelay    time.Duration

	GoogleAds struct {
		ClientID        string
		ClientSecret    string
		DeveloperToken  string
		RefreshToken    string
		LoginCustomerID string
	}
	SFTPPassword string

	// values holds every variable after defaults, keyed by env name.
	values map[string]string
}

// Lookup returns the value of an environment file variable.
func (s Settings) Lookup(name string) string {
	return s.values[name]
}

// LoadSettings reads filename in dotenv syntax. Variables missing from the
// file fall back to the process environment. An empty filename reads the
// process environment only.
func LoadSettings(filename string) (Settings, error) {
	values := map[string]string{}
	if filename != "" {
		var err error
		if values, err = godotenv.Read(filename); err != nil {
			return Settings{}, fmt.Errorf("failed to read environment file %s %w", filename, err)
		}
	}
	return NewSettings(func(name string) (string, bool) {
		if v, ok := values[name]; ok {
			return v, true
		}
		return os.LookupEnv(name)
	})
}

// NewSettings builds Settings from lookup and validates them.
func NewSettings(lookup func(string) (string, bool)) (Settings, error) {
	get := func(name, fallback string) string {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	s := Settings{values: map[string]string{}}
	for _, sub := range cloudbuild.Substitutions {
		key := sub.SubstitutionKey()
		s.values[key] = get(key, sub.Default)
	}

	s.ProjectID = s.values["GCP_PROJECT_ID"]
	s.Location = s.values["GCP_LOCATION"]
	s.TopicName = s.values["TOPIC_NAME"]
	s.TriggerType = strings.ToLower(s.values["TRIGGER_TYPE"])
	s.FunctionName = s.values["FUNCTION_NAME"]
	s.SourceRepo = get("SOURCE_REPO", DefaultSourceRepo)
	s.TriggerName = get("BUILD_TRIGGER_NAME", DefaultTriggerName)
	s.SchedulerJob = get("SCHEDULER_JOB_NAME", DefaultSchedulerJob)
	s.Schedule = get("SCHEDULE", DefaultSchedule)
	s.Branch = get("BRANCH_PATTERN", DefaultBranch)
	s.GoogleAds.ClientID = get("GADS_CLIENT_ID", "")
	s.GoogleAds.ClientSecret = get("GADS_CLIENT_SECRET", "")
	s.GoogleAds.DeveloperToken = get("GADS_DEVELOPER_TOKEN", "")
	s.GoogleAds.RefreshToken = get("GADS_REFRESH_TOKEN", "")
	s.GoogleAds.LoginCustomerID = strings.ReplaceAll(get("GADS_LOGIN_CUSTOMER_ID", ""), "-", "")
	s.SFTPPassword = get("SA360_SFTP_PASSWORD", "")

	s.StepDelay = DefaultStepDelay
	if v := get("STEP_DELAY_SECONDS", ""); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds < 0 {
			return s, fmt.Errorf("%w: STEP_DELAY_SECONDS must be a non-negative integer, have %q", ErrInvalidSettings, v)
		}
		s.StepDelay = time.Duration(seconds) * time.Second
	}

	return s, s.validate()
}

func (s Settings) validate() error {
	var errs []error
	required := []struct {
		name  string
		value string
	}{
		{"GCP_PROJECT_ID", s.ProjectID},
		{"CUSTOMER_ID", s.values["CUSTOMER_ID"]},
		{"GADS_CLIENT_ID", s.GoogleAds.ClientID},
		{"GADS_CLIENT_SECRET", s.GoogleAds.ClientSecret},
		{"GADS_DEVELOPER_TOKEN", s.GoogleAds.DeveloperToken},
		{"GADS_REFRESH_TOKEN", s.GoogleAds.RefreshToken},
		{"SA360_SFTP_USERNAME", s.values["SA360_SFTP_USERNAME"]},
		{"SA360_SFTP_PASSWORD", s.SFTPPassword},
		{"SA360_ACCOUNT_NAME", s.values["SA360_ACCOUNT_NAME"]},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%w: %s is not set", ErrInvalidSettings, r.name))
		}
	}
	if s.TriggerType != TriggerTypePubSub && s.TriggerType != TriggerTypeHTTP {
		errs = append(errs, fmt.Errorf("%w: TRIGGER_TYPE must be %s or %s, have %q", ErrInvalidSettings, TriggerTypePubSub, TriggerTypeHTTP, s.TriggerType))
	}
	if _, err := cron.ParseStandard(s.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("%w: SCHEDULE %q %w", ErrInvalidSettings, s.Schedule, err))
	}
	return errors.Join(errs...)
}

// FunctionServiceAccount is the runtime identity of the deployed function.
func (s Settings) FunctionServiceAccount() string {
	return fmt.Sprintf("%s@appspot.gserviceaccount.com", s.ProjectID)
}

// FunctionURL is the HTTPS trigger of the deployed function.
func (s Settings) FunctionURL() string {
	return fmt.Sprintf("https://%s-%s.cloudfunctions.net/%s", s.Location, s.ProjectID, s.FunctionName)
}

// Substitutions returns the build trigger substitution values.
func (s Settings) Substitutions() map[string]string {
	result := make(map[string]string, len(cloudbuild.Substitutions))
	for _, sub := range cloudbuild.Substitutions {
		result[sub.Name] = s.values[sub.SubstitutionKey()]
	}
	return result
}
