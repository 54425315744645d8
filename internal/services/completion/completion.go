// Copyright 2024 The Conveyor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied
// See the License for the specific language governing permissions and
// limitations under the License.

package completion

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/sorintlab/errors"

	"github.com/conveyorci/conveyor/internal/deploy"
	"github.com/conveyorci/conveyor/internal/gitprovider"
	"github.com/conveyorci/conveyor/internal/gitprovider/gitea"
	"github.com/conveyorci/conveyor/internal/gitprovider/github"
	"github.com/conveyorci/conveyor/internal/gitprovider/gitlab"
	"github.com/conveyorci/conveyor/internal/notify"
	"github.com/conveyorci/conveyor/internal/services/completion/action"
	"github.com/conveyorci/conveyor/internal/services/completion/api"
	"github.com/conveyorci/conveyor/internal/services/config"
	"github.com/conveyorci/conveyor/internal/sqlg/lock"
	"github.com/conveyorci/conveyor/internal/sqlg/sql"
	"github.com/conveyorci/conveyor/internal/util"

	"github.com/conveyorci/conveyor/internal/services/completion/db"
)

const deployJobsLockKey = "deployjobs"

type CompletionService struct {
	log zerolog.Logger
	c   *config.Config

	sdb *sql.DB
	d   *db.DB
	lf  lock.LockFactory
	ah  *action.ActionHandler
}

func NewCompletionService(ctx context.Context, log zerolog.Logger, c *config.Config) (*CompletionService, error) {
	if c.Debug {
		log = log.Level(zerolog.DebugLevel)
	}

	sdb, err := sql.NewDB(c.DB.Type, c.DB.ConnString)
	if err != nil {
		return nil, errors.Wrapf(err, "new db error")
	}

	d, err := db.NewDB(log, sdb)
	if err != nil {
		return nil, errors.Wrapf(err, "new db error")
	}

	var lf lock.LockFactory
	switch c.DB.Type {
	case sql.Sqlite3:
		ll := lock.NewLocalLocks()
		lf = lock.NewLocalLockFactory(ll)
	case sql.Postgres:
		lf = lock.NewPGLockFactory(sdb)
	default:
		return nil, errors.Errorf("unknown db type %q", c.DB.Type)
	}

	if err := d.Setup(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to setup db")
	}

	gitClient, err := newGitProviderClient(&c.GitProvider)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	chat := notify.NewWebhookChatNotifier(log, c.Chat.WebhookURL, c.Chat.WebhookSecret)
	mailer := notify.NewSMTPMailer(log, notify.SMTPOpts{Addr: c.Email.SMTPAddr, From: c.Email.From, Username: c.Email.Username, Password: c.Email.Password})
	progress := notify.NewWebhookProgressReporter(log, c.Progress.WebhookURL, c.Progress.WebhookSecret)
	deployer := deploy.NewHTTPDeployer(log, c.Deployment.EndpointURL, c.Deployment.Token)

	ah := action.NewActionHandler(log, d, lf, chat, mailer, progress, gitClient, c.GitProvider.StatusContext, deployer, c.APIExposedURL)

	return &CompletionService{
		log: log,
		c:   c,
		sdb: sdb,
		d:   d,
		lf:  lf,
		ah:  ah,
	}, nil
}

func newGitProviderClient(c *config.GitProvider) (gitprovider.Client, error) {
	switch c.Type {
	case config.GitProviderTypeGitea:
		client, err := gitea.New(gitea.Opts{APIURL: c.APIURL, Token: c.Token, SkipVerify: c.SkipVerify})
		return client, errors.WithStack(err)
	case config.GitProviderTypeGithub:
		client, err := github.New(github.Opts{APIURL: c.APIURL, Token: c.Token, SkipVerify: c.SkipVerify})
		return client, errors.WithStack(err)
	case config.GitProviderTypeGitlab:
		client, err := gitlab.New(gitlab.Opts{APIURL: c.APIURL, Token: c.Token, SkipVerify: c.SkipVerify})
		return client, errors.WithStack(err)
	case "":
		// no git provider configured, the pull request path is disabled
		return nil, nil
	}

	return nil, errors.Errorf("unknown git provider type %q", c.Type)
}

func (s *CompletionService) setupDefaultRouter() http.Handler {
	buildCompleteHandler := api.NewBuildCompleteHandler(s.log, s.ah)
	createRunHandler := api.NewCreateRunHandler(s.log, s.ah)
	runHandler := api.NewRunHandler(s.log, s.ah)
	runDeployJobsHandler := api.NewRunDeployJobsHandler(s.log, s.ah)

	router := mux.NewRouter()
	apirouter := router.PathPrefix("/api/v1alpha").Subrouter().UseEncodedPath()

	apirouter.Handle("/builds/complete", buildCompleteHandler).Methods("POST")
	apirouter.Handle("/runs", createRunHandler).Methods("POST")
	apirouter.Handle("/runs/{runid}", runHandler).Methods("GET")
	apirouter.Handle("/runs/{runid}/deployjobs", runDeployJobsHandler).Methods("GET")

	mainrouter := mux.NewRouter()
	mainrouter.PathPrefix("/").Handler(router)

	// Return a bad request when it doesn't match any route
	mainrouter.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) })

	if len(s.c.Web.AllowedOrigins) > 0 {
		corsAllowedMethodsOptions := ghandlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "DELETE"})
		corsAllowedHeadersOptions := ghandlers.AllowedHeaders([]string{"Accept", "Accept-Encoding", "Authorization", "Content-Length", "Content-Type"})
		corsAllowedOriginsOptions := ghandlers.AllowedOrigins(s.c.Web.AllowedOrigins)

		return ghandlers.CORS(corsAllowedOriginsOptions, corsAllowedMethodsOptions, corsAllowedHeadersOptions)(mainrouter)
	}

	return mainrouter
}

func (s *CompletionService) Run(ctx context.Context) error {
	for i := 0; i < s.c.Deployment.Workers; i++ {
		go s.deployJobsHandlerLoop(ctx)
	}

	var tlsConfig *tls.Config
	if s.c.Web.TLS {
		var err error
		tlsConfig, err = util.NewTLSConfig(s.c.Web.TLSCertFile, s.c.Web.TLSKeyFile, "", false)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	httpServer := http.Server{
		Addr:      s.c.Web.ListenAddress,
		Handler:   s.setupDefaultRouter(),
		TLSConfig: tlsConfig,
	}

	lerrCh := make(chan error, 1)
	go func() {
		if s.c.Web.TLS {
			lerrCh <- httpServer.ListenAndServeTLS("", "")
		} else {
			lerrCh <- httpServer.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("completion service exiting")
		httpServer.Close()
	case err := <-lerrCh:
		if err != nil {
			s.log.Err(err).Msg("http server listen error")
			return errors.WithStack(err)
		}
	}

	return nil
}

// deployJobsHandlerLoop periodically drains queued deploy jobs. The drain
// itself runs under a lock so, with multiple workers or instances, only one
// drains at a time while the others skip the round.
func (s *CompletionService) deployJobsHandlerLoop(ctx context.Context) {
	for {
		if err := s.deployJobsHandler(ctx); err != nil {
			s.log.Err(err).Send()
		}

		sleepCh := time.NewTimer(1 * time.Second).C
		select {
		case <-ctx.Done():
			return
		case <-sleepCh:
		}
	}
}

func (s *CompletionService) deployJobsHandler(ctx context.Context) error {
	l := s.lf.NewLock(deployJobsLockKey)
	if err := l.TryLock(ctx); err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil
		}
		return errors.WithStack(err)
	}
	defer func() { _ = l.Unlock() }()

	return errors.WithStack(s.ah.ExecuteDeployJobs(ctx))
}
