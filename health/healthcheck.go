package health

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/serayd61/stacks-tx-runner/log"
)

const DefaultBaseURL = "https://hc-ping.com"

type PingType string

const (
	Start   PingType = "start"
	Fail    PingType = "fail"
	Success PingType = "success"
)

// HealthCheckClient talks to HealthChecks.io
type HealthCheckClient struct {
	baseURL string
	uuid    string

	httpClient *http.Client

	log *log.Logger
}

func NewHealthCheckClient(baseURL, uuid string, log *log.Logger) *HealthCheckClient {
	return &HealthCheckClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		uuid:    uuid,

		httpClient: &http.Client{Timeout: 10 * time.Second},

		log: log,
	}
}

func (hm *HealthCheckClient) Start(ctx context.Context, message string) bool {
	hm.log.Info().Msg("🩺 Starting health")
	return hm.ping(ctx, Start, message)
}

func (hm *HealthCheckClient) Success(ctx context.Context, message string) bool {
	hm.log.Info().Msg("❤️  Health success")
	return hm.ping(ctx, Success, message)
}

func (hm *HealthCheckClient) Failed(ctx context.Context, message string) bool {
	hm.log.Info().Msg("❤️‍🩹  Health failed")
	return hm.ping(ctx, Fail, message)
}

// ping never fails the caller; a health check outage only gets logged.
func (hm *HealthCheckClient) ping(ctx context.Context, ptype PingType, message string) bool {
	url := fmt.Sprintf("%s/%s", hm.baseURL, hm.uuid)
	if ptype == Fail || ptype == Start {
		url = fmt.Sprintf("%s/%s/%s", hm.baseURL, hm.uuid, ptype)
	}

	jsonData, err := json.Marshal(map[string]string{"msg": message})
	if err != nil {
		hm.log.Error().Err(err).Msg("failed to marshal health check payload")
		return false
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		hm.log.Error().Err(err).Msg("failed to create health check request")
		return false
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := hm.httpClient.Do(request)
	if err != nil {
		hm.log.Error().Err(err).Str("ping_type", string(ptype)).Msg("failed to post health check")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		hm.log.Error().Str("ping_type", string(ptype)).Int("response_code", resp.StatusCode).Msg("health check ping rejected")
		return false
	}
	return true
}
