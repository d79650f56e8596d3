package util

import (
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/stash/lib/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("line longer than %d characters: %q", Wrap, line)
		}
	}
	if got := WrapString("  short   text "); got != "short text" {
		t.Errorf("WrapString = %q", got)
	}
}

func TestGetPersistConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "test"}
	SetupPersistFlags(cmd)
	if err := cmd.ParseFlags([]string{"--backend=sqlite", "--sqlite-path=/tmp/x.db", "--throttle=2s"}); err != nil {
		t.Fatal(err)
	}
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		t.Fatal(err)
	}

	conf, err := GetPersistConfig()
	if err != nil {
		t.Fatalf("GetPersistConfig failed: %v", err)
	}
	if conf.Backend != common.BackendSQLite || conf.SQLitePath != "/tmp/x.db" {
		t.Errorf("backend = %s %s", conf.Backend, conf.SQLitePath)
	}
	if conf.Throttle != 2*time.Second {
		t.Errorf("Throttle = %s", conf.Throttle)
	}
	if conf.MaxAge != common.DefaultMaxAge || !conf.PersistRedux {
		t.Errorf("defaults not applied: %s", conf.String())
	}

	viper.Set("backend", "etcd")
	if _, err := GetPersistConfig(); err == nil {
		t.Error("invalid backend must be rejected")
	}
}

func TestGetStore(t *testing.T) {
	conf := common.DefaultPersistConfig()
	conf.Backend = common.BackendSQLite
	conf.SQLitePath = t.TempDir() + "/stash.db"

	s, err := GetStore(conf)
	if err != nil {
		t.Fatalf("GetStore failed: %v", err)
	}
	defer s.Close()
	if err := s.Set(t.Context(), "k", []byte("v")); err != nil {
		t.Errorf("Set failed: %v", err)
	}

	conf.Backend = "etcd"
	if _, err := GetStoreFactory(conf); err == nil {
		t.Error("unknown backend must be rejected")
	}
}

func TestGetSerializer(t *testing.T) {
	conf := common.DefaultPersistConfig()
	for _, name := range []string{"json", "gob"} {
		conf.Serializer = name
		if _, err := GetSerializer(conf); err != nil {
			t.Errorf("serializer %s: %v", name, err)
		}
	}
	conf.Serializer = "xml"
	if _, err := GetSerializer(conf); err == nil {
		t.Error("unknown serializer must be rejected")
	}
}
