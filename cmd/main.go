package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	settlement "withdrawal_settlement"
	"withdrawal_settlement/pkg/accountclient"
	"withdrawal_settlement/pkg/cache"
	"withdrawal_settlement/pkg/events"
	"withdrawal_settlement/pkg/handler"
	"withdrawal_settlement/pkg/notify"
	"withdrawal_settlement/pkg/repository"
	"withdrawal_settlement/pkg/service"
	"withdrawal_settlement/pkg/validation"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))
	logrus.Infoln("starting withdrawal settlement service")
	if err := godotenv.Load(); err != nil {
		logrus.Infof("no .env file loaded: %s", err)
	}

	if err := InitConfig(); err != nil {
		logrus.Fatalf("error reading config: %s", err.Error())
	}
	if lvl, err := logrus.ParseLevel(viper.GetString("log_level")); err == nil {
		logrus.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeRepos, err := newRepository()
	if err != nil {
		logrus.Fatalf("error initializing storage: %s", err.Error())
	}
	defer closeRepos()

	accounts := newAccounts()
	dispatcher := events.NewDispatcher(
		repos.Audit,
		newNotifier(),
		viper.GetInt("events.queue_size"),
		viper.GetInt("events.workers"),
	)

	services := service.NewService(service.Deps{
		Repos:       repos,
		Balances:    accounts,
		Permissions: accounts,
		Events:      dispatcher,
		Cache:       cache.NewListCache(viper.GetDuration("cache.list_ttl")),
		Validator:   validation.Validator{StrictAddresses: viper.GetBool("validation.strict_addresses")},
	})
	handlers := handler.NewHandler(services, viper.GetStringSlice("cors.allow_origins"))

	port := os.Getenv("PORT")
	if port == "" {
		port = viper.GetString("port")
	}

	srv := new(settlement.Server)
	logrus.WithField("port", port).Info("http server listening")
	if err := srv.Run(ctx, port, handlers.InitRoute(), dispatcher.Run); err != nil {
		logrus.Errorf("server stopped with error: %s", err.Error())
		return
	}
	logrus.Info("server stopped")
}

func InitConfig() error {
	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

func newRepository() (*repository.Repository, func(), error) {
	if viper.GetString("db.driver") == "memory" {
		logrus.Warn("using in-memory storage, data is lost on restart")
		return repository.NewMemoryRepository(), func() {}, nil
	}

	db, err := repository.NewPostgresDB(repository.Config{
		Host:         viper.GetString("db.host"),
		Port:         viper.GetString("db.port"),
		Username:     viper.GetString("db.username"),
		Password:     os.Getenv("DB_PASSWORD"),
		DBName:       viper.GetString("db.dbname"),
		SSLMode:      viper.GetString("db.sslmode"),
		MaxOpenConns: viper.GetInt("db.max_open_conns"),
		MaxIdleConns: viper.GetInt("db.max_idle_conns"),
	})
	if err != nil {
		return nil, nil, err
	}
	logrus.Info("database connected")

	if viper.GetBool("db.migrate") {
		if err := repository.RunMigrations(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		logrus.Info("database migrations applied")
	}

	return repository.NewRepository(db), func() {
		if err := db.Close(); err != nil {
			logrus.Warnf("error closing database: %s", err)
		}
	}, nil
}

type accountService interface {
	service.Balances
	service.Permissions
}

func newAccounts() accountService {
	if viper.GetString("account.driver") == "static" {
		balances := make(map[string]decimal.Decimal)
		for user, raw := range viper.GetStringMapString("account.static.balances") {
			b, err := decimal.NewFromString(raw)
			if err != nil {
				logrus.Fatalf("invalid static balance for %s: %s", user, err)
			}
			balances[user] = b
		}
		logrus.Warn("using static account balances and permissions")
		return &accountclient.Static{
			Balances: balances,
			Admins:   viper.GetStringMapStringSlice("account.static.admins"),
		}
	}

	return accountclient.New(accountclient.Config{
		BaseURL: viper.GetString("account.base_url"),
		APIKey:  os.Getenv("ACCOUNT_API_KEY"),
		Timeout: viper.GetDuration("account.timeout"),
		Retries: viper.GetInt("account.retries"),
	})
}

func newNotifier() notify.Notifier {
	box := notify.Mailbox{
		From:     viper.GetString("notify.from"),
		FromName: viper.GetString("notify.from_name"),
		To:       viper.GetString("notify.to"),
	}

	switch viper.GetString("notify.driver") {
	case "mailjet":
		apiKey := os.Getenv("MAILJET_API_KEY")
		secretKey := os.Getenv("MAILJET_SECRET_KEY")
		if apiKey == "" || secretKey == "" {
			logrus.Warn("MAILJET_API_KEY or MAILJET_SECRET_KEY not set, notifications go to the log")
			return notify.LogNotifier{}
		}
		return notify.NewMailjetNotifier(apiKey, secretKey, box)
	case "smtp":
		return notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     viper.GetString("notify.smtp.host"),
			Port:     viper.GetInt("notify.smtp.port"),
			Username: viper.GetString("notify.smtp.username"),
			Password: os.Getenv("SMTP_PASSWORD"),
		}, box)
	}
	return notify.LogNotifier{}
}
