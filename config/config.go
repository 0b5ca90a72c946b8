package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mbolis/quick-forms/attachments"
	"github.com/mbolis/quick-forms/model"
)

type Config struct {
	Addr        string
	DBUrl       string
	TokenSecret string
	TokenTTL    time.Duration
	Debug       bool

	S3        attachments.MinioConfig
	MaxUpload int64

	EscalatedRequired bool
	ZeroIsAnswer      bool
	OneResponsePerIP  bool

	// BootstrapAdmin is "username:password" of an admin to create at startup.
	BootstrapAdmin string
}

func ParseFlags() (Config, error) {
	return Parse(os.Args[1:])
}

func Parse(args []string) (cfg Config, err error) {
	flags := flag.NewFlagSet("quick-forms", flag.ContinueOnError)

	var host string
	flags.StringVar(&host, "host", "0.0.0.0", "listen host name")
	var port uint
	flags.UintVar(&port, "port", 80, "listen port number")
	flags.StringVar(&cfg.DBUrl, "db-url", "qforms.sqlite", "path to SQLite3 DB file")
	flags.StringVar(&cfg.TokenSecret, "token-secret", "", "secret key for token encryption and decryption")
	var ttl uint
	flags.UintVar(&ttl, "token-ttl", 120, "token TTL in seconds")
	flags.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")

	flags.StringVar(&cfg.S3.Endpoint, "s3-endpoint", "", "S3 compatible endpoint for attachments, inline storage when empty")
	flags.StringVar(&cfg.S3.AccessKey, "s3-access-key", "", "S3 access key")
	flags.StringVar(&cfg.S3.SecretKey, "s3-secret-key", "", "S3 secret key")
	flags.StringVar(&cfg.S3.Bucket, "s3-bucket", "attachments", "S3 bucket for attachments")
	flags.BoolVar(&cfg.S3.UseSSL, "s3-ssl", true, "use TLS towards the S3 endpoint")
	var maxUploadMB uint
	flags.UintVar(&maxUploadMB, "max-upload-mb", 10, "maximum request body size in MiB")

	flags.BoolVar(&cfg.EscalatedRequired, "escalated-required", false, "section completeness honours conditional required rules")
	flags.BoolVar(&cfg.ZeroIsAnswer, "zero-is-answer", false, "a numeric 0 counts as an answer")
	flags.BoolVar(&cfg.OneResponsePerIP, "one-response-per-ip", false, "refuse a second response to a form from the same address")

	flags.StringVar(&cfg.BootstrapAdmin, "bootstrap-admin", "", "create or reset an admin user, as username:password")

	err = flags.Parse(args)
	if err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.MaxUpload = int64(maxUploadMB) << 20

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret")
	} else if cfg.BootstrapAdmin != "" && !strings.Contains(cfg.BootstrapAdmin, ":") {
		err = errors.New("parameter -bootstrap-admin must be username:password")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

// Policy returns the completeness policy selected on the command line.
func (cfg Config) Policy() model.Policy {
	return model.Policy{
		EscalatedRequired: cfg.EscalatedRequired,
		ZeroIsAnswer:      cfg.ZeroIsAnswer,
	}
}

// Admin splits BootstrapAdmin into its parts.
func (cfg Config) Admin() (username, password string, ok bool) {
	return strings.Cut(cfg.BootstrapAdmin, ":")
}
