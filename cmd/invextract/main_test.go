package main

import "testing"

func TestCommandRegistration(t *testing.T) {
	want := map[string]bool{
		"run":     false,
		"watch":   false,
		"extract": false,
		"upload":  false,
		"grist":   false,
		"status":  false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestGristSubcommands(t *testing.T) {
	subs := map[string]bool{}
	for _, c := range gristCmd.Commands() {
		subs[c.Name()] = true
	}
	for _, name := range []string{"tables", "columns", "unique"} {
		if !subs[name] {
			t.Errorf("grist subcommand %q not registered", name)
		}
	}
}

func TestUploadFlags(t *testing.T) {
	for _, flag := range []string{"all", "clear"} {
		if uploadCmd.Flags().Lookup(flag) == nil {
			t.Errorf("upload command missing --%s", flag)
		}
	}
}
