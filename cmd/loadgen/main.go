// Нагрузочный прогон: воспроизводит доставки вебхуков и чтение ревью через vegeta.
// Сервис должен быть запущен с STORAGE=memory и тестовым удалённым хостом.
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	vegeta "github.com/tsenart/vegeta/v12/lib"
)

type options struct {
	target   string
	rps      int
	duration time.Duration
	repos    int
	prs      int
}

type webhookPayload struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest struct {
		Number int `json:"number"`
		Head   struct {
			SHA string `json:"sha"`
		} `json:"head"`
	} `json:"pull_request"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	opts := options{}
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Replay webhook deliveries against a running review engine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAttack(cmd, logger, opts)
		},
	}
	cmd.Flags().StringVar(&opts.target, "target", "http://localhost:8081", "base URL of the review engine")
	cmd.Flags().IntVar(&opts.rps, "rps", 5, "requests per second")
	cmd.Flags().DurationVar(&opts.duration, "duration", 3*time.Minute, "attack duration")
	cmd.Flags().IntVar(&opts.repos, "repos", 5, "number of simulated repositories")
	cmd.Flags().IntVar(&opts.prs, "prs", 20, "pull requests per repository")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func webhookBody(action, repo string, number int) []byte {
	var p webhookPayload
	p.Action = action
	p.Number = number
	p.PullRequest.Number = number
	p.PullRequest.Head.SHA = fmt.Sprintf("%040x", rand.Int63())
	p.Repository.FullName = repo
	body, _ := json.Marshal(p)
	return body
}

// Targeter
func makeTargeter(opts options) vegeta.Targeter {
	return func(t *vegeta.Target) error {
		repo := fmt.Sprintf("load/repo-%02d", rand.Intn(opts.repos)+1)
		number := rand.Intn(opts.prs) + 1
		r := rand.Float64()

		// 50% GET reviews
		if r < 0.50 {
			t.Method = http.MethodGet
			t.URL = fmt.Sprintf("%s/reviews/%s/%d", opts.target, repo, number)
			t.Body = nil
			t.Header = http.Header{"Accept": {"application/json"}}
			return nil
		}

		// 45% доставки pull_request: synchronize чаще, чем opened
		if r < 0.95 {
			action := "synchronize"
			if r < 0.60 {
				action = "opened"
			}
			t.Method = http.MethodPost
			t.URL = opts.target + "/webhook/github"
			t.Body = webhookBody(action, repo, number)
			t.Header = http.Header{
				"Content-Type":      {"application/json"},
				"X-GitHub-Event":    {"pull_request"},
				"X-GitHub-Delivery": {fmt.Sprintf("load-%d", time.Now().UnixNano())},
			}
			return nil
		}

		// 5% события, которые сервис должен пропустить
		t.Method = http.MethodPost
		t.URL = opts.target + "/webhook/github"
		t.Body = []byte(`{"zen":"Design for failure."}`)
		t.Header = http.Header{
			"Content-Type":   {"application/json"},
			"X-GitHub-Event": {"ping"},
		}
		return nil
	}
}

// Attack
func runAttack(cmd *cobra.Command, logger *logrus.Logger, opts options) error {
	if opts.rps <= 0 || opts.repos <= 0 || opts.prs <= 0 {
		return fmt.Errorf("rps, repos and prs must be positive")
	}

	rate := vegeta.Rate{Freq: opts.rps, Per: time.Second}
	attacker := vegeta.NewAttacker(vegeta.Timeout(30 * time.Second))

	var metrics vegeta.Metrics

	logger.WithFields(logrus.Fields{
		"target":   opts.target,
		"rps":      opts.rps,
		"duration": opts.duration,
	}).Info("Starting attack")
	for res := range attacker.Attack(makeTargeter(opts), rate, opts.duration, "webhook-replay") {
		metrics.Add(res)
	}
	metrics.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Results ===")
	fmt.Fprintf(out, "Requests: %d\n", metrics.Requests)
	fmt.Fprintf(out, "Success rate: %.4f%%\n", metrics.Success*100)
	fmt.Fprintf(out, "Latency mean: %s\n", metrics.Latencies.Mean)
	fmt.Fprintf(out, "Latency P95: %s\n", metrics.Latencies.P95)
	fmt.Fprintf(out, "Latency P99: %s\n", metrics.Latencies.P99)
	fmt.Fprintf(out, "Status codes: %v\n", metrics.StatusCodes)
	return nil
}
