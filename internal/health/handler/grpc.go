// Package handler drives the standard grpc.health.v1 service from readiness probes.
package handler

import (
	"context"
	"log"
	"time"

	"github.com/benbjohnson/clock"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// probeTimeout bounds a single readiness probe.
const probeTimeout = 2 * time.Second

// Pinger checks database reachability (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks the policy engine (e.g. the OPA resolver self-check).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker sets the serving status of services on a health.Server from a DB ping and a policy
// engine check. Nil checks are skipped.
type Checker struct {
	health   *health.Server
	pinger   Pinger
	policy   PolicyChecker
	services []string
	clock    clock.Clock
}

// NewChecker returns a Checker updating hs for the overall server ("") and each of services.
func NewChecker(hs *health.Server, pinger Pinger, policy PolicyChecker, clk clock.Clock, services ...string) *Checker {
	if clk == nil {
		clk = clock.New()
	}
	return &Checker{
		health:   hs,
		pinger:   pinger,
		policy:   policy,
		services: append([]string{""}, services...),
		clock:    clk,
	}
}

// Check probes once, publishes the status, and returns the first failure.
func (c *Checker) Check(ctx context.Context) error {
	err := c.probe(ctx)
	st := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	for _, svc := range c.services {
		c.health.SetServingStatus(svc, st)
	}
	return err
}

func (c *Checker) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if c.pinger != nil {
		if err := c.pinger.PingContext(ctx); err != nil {
			return err
		}
	}
	if c.policy != nil {
		if err := c.policy.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Run checks every interval until ctx is done. Status changes are logged.
func (c *Checker) Run(ctx context.Context, interval time.Duration) error {
	last := c.Check(ctx)
	if last != nil {
		log.Printf("health: not serving: %v", last)
	}
	t := c.clock.Ticker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			err := c.Check(ctx)
			switch {
			case err != nil && last == nil:
				log.Printf("health: not serving: %v", err)
			case err == nil && last != nil:
				log.Printf("health: serving again")
			}
			last = err
		}
	}
}

// Shutdown marks every service NOT_SERVING so load balancers drain before the server stops.
func (c *Checker) Shutdown() {
	c.health.Shutdown()
}
