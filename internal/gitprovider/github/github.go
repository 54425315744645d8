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

package github

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/google/go-github/v74/github"
	"github.com/sorintlab/errors"
	"golang.org/x/oauth2"

	"github.com/conveyorci/conveyor/internal/gitprovider"
)

type Opts struct {
	// APIURL is set only for GitHub Enterprise instances. When empty the
	// public github.com API is used.
	APIURL     string
	Token      string
	SkipVerify bool
}

type Client struct {
	client *github.Client
}

func New(opts Opts) (*Client, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.SkipVerify},
	}
	httpClient := &http.Client{Transport: transport}

	if opts.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := github.NewClient(httpClient)
	if opts.APIURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(opts.APIURL, opts.APIURL)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create github client")
		}
	}

	return &Client{client: client}, nil
}

func fromCommitState(state gitprovider.CommitState) string {
	switch state {
	case gitprovider.CommitStatePending:
		return "pending"
	case gitprovider.CommitStateSuccess:
		return "success"
	case gitprovider.CommitStateFailed:
		return "failure"
	default:
		return "error"
	}
}

func (c *Client) CreatePullRequest(ctx context.Context, opts gitprovider.CreatePullRequestOpts) (*gitprovider.PullRequest, error) {
	owner, repo, err := gitprovider.SplitRepositoryPath(opts.Repository)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	pr, _, err := c.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.Ptr(opts.Title),
		Head:  github.Ptr(opts.Head),
		Base:  github.Ptr(opts.Base),
		Body:  github.Ptr(opts.Description),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create pull request")
	}

	return &gitprovider.PullRequest{Number: pr.GetNumber(), WebURL: pr.GetHTMLURL()}, nil
}

func (c *Client) CreateCommitStatus(ctx context.Context, repository, commitSHA string, state gitprovider.CommitState, targetURL, description, statusContext string) error {
	owner, repo, err := gitprovider.SplitRepositoryPath(repository)
	if err != nil {
		return errors.WithStack(err)
	}

	_, _, err = c.client.Repositories.CreateStatus(ctx, owner, repo, commitSHA, &github.RepoStatus{
		State:       github.Ptr(fromCommitState(state)),
		TargetURL:   github.Ptr(targetURL),
		Description: github.Ptr(description),
		Context:     github.Ptr(statusContext),
	})

	return errors.WithStack(err)
}
