package di_test

import (
	"testing"

	"github.com/fd1az/dex-spread-monitor/internal/di"
)

type counter struct{ n int }

func TestContainer_FactoryRunsOnce(t *testing.T) {
	c := di.NewContainer()
	tok := di.NewToken[*counter]("test:counter")

	calls := 0
	di.RegisterToken(c, tok, func(sr di.ServiceRegistry) *counter {
		calls++
		return &counter{n: calls}
	})

	a := di.GetToken(c, tok)
	b := di.GetToken(c, tok)

	if a != b {
		t.Error("expected the same instance on repeated resolution")
	}
	if calls != 1 {
		t.Errorf("factory called %d times, want 1", calls)
	}
}

func TestContainer_FactoryResolvesDependencies(t *testing.T) {
	c := di.NewContainer()
	c.Register("config", 42)

	tok := di.NewToken[int]("test:double")
	di.RegisterToken(c, tok, func(sr di.ServiceRegistry) int {
		return sr.Get("config").(int) * 2
	})

	if got := di.GetToken(c, tok); got != 84 {
		t.Errorf("got %d, want 84", got)
	}
}

func TestContainer_UnknownServicePanics(t *testing.T) {
	c := di.NewContainer()

	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown service")
		}
	}()
	c.Get("missing")
}
