package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"
)

// Config is the flood harness run profile: what to call, how many floods to
// line up against it, and how the run is bounded and observed.
type Config struct {
	Target      *TargetConfig  `yaml:"target,omitempty" json:"target,omitempty"`
	Floods      []*FloodConfig `yaml:"floods,omitempty" json:"floods,omitempty"`
	GracePeriod time.Duration  `yaml:"grace-period,omitempty" json:"grace-period,omitempty"`
	// Timeout bounds the wait for flood results; zero waits for every worker.
	Timeout    time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Prometheus *PromConfig   `yaml:"prometheus,omitempty" json:"prometheus,omitempty"`
}

type TLS struct {
	CA         string `yaml:"ca,omitempty" json:"ca,omitempty"`
	Cert       string `yaml:"cert,omitempty" json:"cert,omitempty"`
	Key        string `yaml:"key,omitempty" json:"key,omitempty"`
	SkipVerify bool   `yaml:"skip-verify,omitempty" json:"skip-verify,omitempty"`
}

func New(file string) (*Config, error) {
	c := new(Config)
	if file != "" {
		file, err := homedir.Expand(file)
		if err != nil {
			return nil, err
		}
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}

		err = yaml.Unmarshal(b, c)
		if err != nil {
			return nil, err
		}
	}
	err := c.validateSetDefaults()
	return c, err
}

func (c *Config) validateSetDefaults() error {
	if c.Target == nil {
		c.Target = &TargetConfig{}
	}
	err := c.Target.validateSetDefaults()
	if err != nil {
		return err
	}

	// an empty profile still floods: one unit with default counts
	if len(c.Floods) == 0 {
		c.Floods = []*FloodConfig{{}}
	}
	for _, f := range c.Floods {
		if err = f.validateSetDefaults(); err != nil {
			return err
		}
	}

	if c.GracePeriod <= 0 {
		c.GracePeriod = defaultGracePeriod
	}
	if c.Timeout < 0 {
		return fmt.Errorf("negative timeout: %s", c.Timeout)
	}
	if c.Prometheus != nil {
		if err = c.Prometheus.validateSetDefaults(); err != nil {
			return err
		}
	}
	return nil
}

func (t *TLS) NewConfig() (*tls.Config, error) {
	tlsCfg := &tls.Config{InsecureSkipVerify: t.SkipVerify}
	if t.CA != "" {
		ca, err := os.ReadFile(t.CA)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		if len(ca) != 0 {
			caCertPool := x509.NewCertPool()
			caCertPool.AppendCertsFromPEM(ca)
			tlsCfg.RootCAs = caCertPool
		}
	}

	if t.Cert != "" && t.Key != "" {
		cert, err := tls.LoadX509KeyPair(t.Cert, t.Key)
		if err != nil {
			return nil, err
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

type PromConfig struct {
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
}

func (p *PromConfig) validateSetDefaults() error {
	if p.Address == "" {
		p.Address = defaultPromAddress
	}
	return nil
}
