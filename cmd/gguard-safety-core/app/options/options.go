package options

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/groundguard-io/groundguard/internal/daemon"
	"github.com/groundguard-io/groundguard/internal/processor"
	"github.com/groundguard-io/groundguard/pkg/app"
	"github.com/groundguard-io/groundguard/pkg/log"
	"github.com/groundguard-io/groundguard/pkg/options"
)

// CoreOptions aggregates every option group of the safety core daemon.
type CoreOptions struct {
	VehicleID string               `json:"vehicle-id" mapstructure:"vehicle-id"`
	AuditDir  string               `json:"audit-dir" mapstructure:"audit-dir"`
	Mqtt      *options.MqttOptions `json:"mqtt" mapstructure:"mqtt"`
	Http      *options.HttpOptions `json:"http" mapstructure:"http"`
	Log       *log.Options         `json:"log" mapstructure:"log"`
}

var _ app.CliOptions = (*CoreOptions)(nil)

// NewCoreOptions creates the option aggregate with defaults.
func NewCoreOptions() *CoreOptions {
	return &CoreOptions{
		Mqtt: options.NewMqttOptions(),
		Http: options.NewHttpOptions(),
		Log:  log.NewOptions(),
	}
}

// AddFlags binds all option groups to the FlagSet.
func (o *CoreOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.VehicleID, "vehicle-id", o.VehicleID,
		"Vehicle identity used in topics and pulses. Defaults to the hostname.")
	fs.StringVar(&o.AuditDir, "audit-dir", o.AuditDir,
		"Directory for the JSONL audit trail. Empty disables the file sink.")

	o.Mqtt.AddFlags(fs)
	o.Http.AddFlags(fs)
	o.Log.AddFlags(fs)
}

// Complete changes nothing; the vehicle ID default (the hostname) is derived
// when the daemon is built.
func (o *CoreOptions) Complete() error {
	return nil
}

// Validate checks all option groups.
func (o *CoreOptions) Validate() error {
	var errs []error
	errs = append(errs, o.Mqtt.Validate()...)
	errs = append(errs, o.Http.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errors.Join(errs...)
}

// Config converts the options into the daemon's assembly config.
func (o *CoreOptions) Config() (*daemon.Config, error) {
	return &daemon.Config{
		VehicleID:   o.VehicleID,
		MqttOptions: o.Mqtt,
		HttpOptions: o.Http,
		AuditDir:    o.AuditDir,
		Core:        processor.DefaultConfig(),
	}, nil
}
