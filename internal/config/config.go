package config

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// DBCredential struct
type DBCredential struct {
	Address  string `yaml:"address"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`
}

// GetRedisAddress prints redis credential info.
func (c *DBCredential) GetRedisAddress() string {
	return fmt.Sprintf("%v:%v", c.Address, c.Port)
}

// Relay holds the credentials and endpoint of the WalletConnect relay network.
type Relay struct {
	// URL of the relay websocket endpoint, e.g. wss://relay.walletconnect.com
	URL string `yaml:"url"`
	// ProjectID is the relay project credential appended to the dial URL.
	ProjectID string `yaml:"project_id"`
}

// AppMetadata describes this wallet to the dApps it pairs with.
type AppMetadata struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	URL         string   `yaml:"url"`
	Icons       []string `yaml:"icons"`
}

// Configuration struct
type Configuration struct {
	RedisCredential  DBCredential `yaml:"redis"`
	Relay            Relay        `yaml:"relay"`
	AppMetadata      AppMetadata  `yaml:"app_metadata"`
	HTTPListen       string       `yaml:"http_listen"`
	LarkAlarmWebhook string       `yaml:"lark_alarm_webhook"`
	SentryDSN        string       `yaml:"sentry_dsn"`
	LogLevel         int          `yaml:"log_level"`
}

func readConfig(path string) (Configuration, error) {
	logrus.Info("Starting to load configuration file ...")
	dat, err := ioutil.ReadFile(path)
	if err != nil {
		logrus.Fatal(err)
	}
	t := Configuration{}
	err = yaml.Unmarshal(dat, &t)

	if err != nil {
		if os.IsNotExist(err) {
			logrus.Fatalf("file %s does not exist", path)
		} else {
			logrus.Fatalf("fail to decode config error: %v", err)
		}
	}
	return t, nil
}

var Global *Configuration

// Read reads configuration information from yml.
func Read() {
	configFilePath := flag.String("config-path", "internal/config/config.yml", "The path to the configuration file")
	flag.Parse()
	logrus.Infof("Loading configuration file from %s", *configFilePath)
	globalConfig, err := readConfig(*configFilePath)
	if err != nil {
		logrus.Fatal(err)
	}
	Global = &globalConfig
}
