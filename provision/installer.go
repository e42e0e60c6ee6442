package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

const (
	SecretGoogleAdsCredentials = "google_ads_api_credentials"
	SecretSA360SFTPPassword    = "sa360_sftp_password"
)

// RequiredServices are enabled in order before any resource is created.
var RequiredServices = []string{
	"cloudresourcemanager.googleapis.com",
	"iam.googleapis.com",
	"cloudbuild.googleapis.com",
	"cloudfunctions.googleapis.com",
	"run.googleapis.com",
	"artifactregistry.googleapis.com",
	"sourcerepo.googleapis.com",
	"secretmanager.googleapis.com",
	"pubsub.googleapis.com",
	"cloudscheduler.googleapis.com",
	"googleads.googleapis.com",
}

// CloudBuildRoles are granted to the Cloud Build service account so it can deploy the function.
var CloudBuildRoles = []string{
	"roles/cloudfunctions.developer",
	"roles/iam.serviceAccountUser",
	"roles/secretmanager.secretAccessor",
}

// FunctionRoles are granted to the function's runtime service account.
var FunctionRoles = []string{
	"roles/secretmanager.secretAccessor",
}

// Step is one provisioning stage.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Installer provisions the cloud resources the keyword function needs by
// driving gcloud.
type Installer struct {
	Settings Settings
	Runner   Runner
	Logger   *slog.Logger
	// Strict stops at the first failed step.
	Strict bool
	Sleep  func(ctx context.Context, d time.Duration) error
}

func NewInstaller(settings Settings, runner Runner, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Installer{Settings: settings, Runner: runner, Logger: logger, Sleep: sleepContext}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (in *Installer) gcloud(args ...string) Command {
	return Command{Name: "gcloud", Args: args}
}

func (in *Installer) run(ctx context.Context, cmd Command) (string, error) {
	in.Logger.Debug("running command", "command", cmd.String())
	return in.Runner.Run(ctx, cmd)
}

// exists runs a read-only check; any failure means the resource is missing.
func (in *Installer) exists(ctx context.Context, cmd Command) bool {
	cmd.Check = true
	out, err := in.run(ctx, cmd)
	return err == nil && out != ""
}

// Steps lists the provisioning stages in execution order.
func (in *Installer) Steps() []Step {
	steps := []Step{
		{Name: "set active project", Run: in.setProject},
		{Name: "enable services", Run: in.enableServices},
	}
	if in.Settings.TriggerType == TriggerTypePubSub {
		steps = append(steps, Step{Name: "create pub/sub topic", Run: in.createTopic})
	}
	return append(steps,
		Step{Name: "create source repository", Run: in.createSourceRepo},
		Step{Name: "store secrets", Run: in.storeSecrets},
		Step{Name: "grant iam roles", Run: in.grantRoles},
		Step{Name: "register build trigger", Run: in.registerBuildTrigger},
		Step{Name: "register scheduler job", Run: in.registerSchedulerJob},
	)
}

// Install runs every step in order, sleeping StepDelay before each one.
// Failed steps are logged and joined into the returned error; in strict
// mode the first failure stops the install.
func (in *Installer) Install(ctx context.Context) error {
	var errs []error
	steps := in.Steps()
	for i, step := range steps {
		if err := in.Sleep(ctx, in.Settings.StepDelay); err != nil {
			return errors.Join(append(errs, err)...)
		}
		in.Logger.Info(fmt.Sprintf("STEP %d: %s", i+1, step.Name))
		if err := step.Run(ctx); err != nil {
			err = fmt.Errorf("step %d %s: %w", i+1, step.Name, err)
			in.Logger.Error("step failed", "step", i+1, "name", step.Name, "error", err)
			errs = append(errs, err)
			if in.Strict {
				break
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	in.Logger.Info("install complete", "project", in.Settings.ProjectID, "trigger_type", in.Settings.TriggerType)
	return nil
}

func (in *Installer) setProject(ctx context.Context) error {
	_, err := in.run(ctx, in.gcloud("config", "set", "project", in.Settings.ProjectID))
	return err
}

func (in *Installer) enableServices(ctx context.Context) error {
	var errs []error
	for _, service := range RequiredServices {
		check := in.gcloud("services", "list", "--enabled",
			"--filter=config.name="+service, "--format=value(config.name)")
		if in.exists(ctx, check) {
			in.Logger.Info("service already enabled", "service", service)
			continue
		}
		if _, err := in.run(ctx, in.gcloud("services", "enable", service)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (in *Installer) createTopic(ctx context.Context) error {
	topic := in.Settings.TopicName
	if in.exists(ctx, in.gcloud("pubsub", "topics", "describe", topic, "--format=value(name)")) {
		in.Logger.Info("topic already exists", "topic", topic)
		return nil
	}
	_, err := in.run(ctx, in.gcloud("pubsub", "topics", "create", topic))
	return err
}

func (in *Installer) createSourceRepo(ctx context.Context) error {
	repo := in.Settings.SourceRepo
	if in.exists(ctx, in.gcloud("source", "repos", "describe", repo, "--format=value(name)")) {
		in.Logger.Info("source repository already exists", "repo", repo)
		return nil
	}
	_, err := in.run(ctx, in.gcloud("source", "repos", "create", repo))
	return err
}

// storeSecrets recreates each secret. Delete failures are ignored as the
// secret may not exist yet.
func (in *Installer) storeSecrets(ctx context.Context) error {
	credentials, err := in.Settings.GoogleAdsCredentialsJSON()
	if err != nil {
		return fmt.Errorf("failed to build google ads credentials %w", err)
	}
	secrets := []struct {
		name  string
		value string
	}{
		{SecretGoogleAdsCredentials, credentials},
		{SecretSA360SFTPPassword, in.Settings.SFTPPassword},
	}
	var errs []error
	for _, s := range secrets {
		if _, err := in.run(ctx, in.gcloud("secrets", "delete", s.name, "--quiet")); err != nil {
			in.Logger.Debug("secret delete failed", "secret", s.name, "error", err)
		}
		create := in.gcloud("secrets", "create", s.name, "--replication-policy=automatic", "--data-file=-")
		create.Stdin = s.value
		if _, err := in.run(ctx, create); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (in *Installer) projectNumber(ctx context.Context) (string, error) {
	cmd := in.gcloud("projects", "describe", in.Settings.ProjectID, "--format=value(projectNumber)")
	cmd.DryRunOutput = "PROJECT_NUMBER"
	number, err := in.run(ctx, cmd)
	if err != nil {
		return "", err
	}
	if number == "" {
		return "", fmt.Errorf("no project number for %s", in.Settings.ProjectID)
	}
	return number, nil
}

func (in *Installer) grantRoles(ctx context.Context) error {
	number, err := in.projectNumber(ctx)
	if err != nil {
		return err
	}
	bindings := []struct {
		member string
		roles  []string
	}{
		{"serviceAccount:" + number + "@cloudbuild.gserviceaccount.com", CloudBuildRoles},
		{"serviceAccount:" + in.Settings.FunctionServiceAccount(), FunctionRoles},
	}
	var errs []error
	for _, b := range bindings {
		for _, role := range b.roles {
			_, err := in.run(ctx, in.gcloud("projects", "add-iam-policy-binding", in.Settings.ProjectID,
				"--member="+b.member, "--role="+role, "--condition=None", "--quiet"))
			if err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// SubstitutionsFlag renders substitutions for gcloud, switching to a ~
// delimiter when a value contains a comma.
func SubstitutionsFlag(subs map[string]string) string {
	keys := make([]string, 0, len(subs))
	delimiter := ","
	for k, v := range subs {
		keys = append(keys, k)
		if strings.Contains(v, ",") {
			delimiter = "~"
		}
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + subs[k]
	}
	flag := strings.Join(pairs, delimiter)
	if delimiter != "," {
		flag = "^" + delimiter + "^" + flag
	}
	return "--substitutions=" + flag
}

func (in *Installer) registerBuildTrigger(ctx context.Context) error {
	name := in.Settings.TriggerName
	if _, err := in.run(ctx, in.gcloud("builds", "triggers", "delete", name, "--quiet")); err != nil {
		in.Logger.Debug("build trigger delete failed", "trigger", name, "error", err)
	}
	_, err := in.run(ctx, in.gcloud("builds", "triggers", "create", "cloud-source-repositories",
		"--name="+name,
		"--repo="+in.Settings.SourceRepo,
		"--branch-pattern="+in.Settings.Branch,
		"--build-config=cloudbuild.yaml",
		SubstitutionsFlag(in.Settings.Substitutions()),
	))
	return err
}

func (in *Installer) registerSchedulerJob(ctx context.Context) error {
	s := in.Settings
	if _, err := in.run(ctx, in.gcloud("scheduler", "jobs", "delete", s.SchedulerJob, "--location="+s.Location, "--quiet")); err != nil {
		in.Logger.Debug("scheduler job delete failed", "job", s.SchedulerJob, "error", err)
	}
	var create Command
	if s.TriggerType == TriggerTypeHTTP {
		create = in.gcloud("scheduler", "jobs", "create", "http", s.SchedulerJob,
			"--location="+s.Location,
			"--schedule="+s.Schedule,
			"--uri="+s.FunctionURL(),
			"--http-method=POST",
			"--oidc-service-account-email="+s.FunctionServiceAccount(),
		)
	} else {
		create = in.gcloud("scheduler", "jobs", "create", "pubsub", s.SchedulerJob,
			"--location="+s.Location,
			"--schedule="+s.Schedule,
			"--topic="+s.TopicName,
			"--message-body=run",
		)
	}
	_, err := in.run(ctx, create)
	return err
}
