package main

import (
	"fmt"
	"io"

	"github.com/guardian-nexus/sqlfw-auditor/pkg/auditor"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/config"
)

func printPlan(w io.Writer, p auditor.ServerPlan, cfg config.Config) {
	fmt.Fprintf(w, "\nServer - %s (%s/%s)\n", p.Server.Name, p.Server.SubscriptionID, p.Server.ResourceGroup)
	if len(p.Deletions) == 0 && len(p.Creations) == 0 {
		fmt.Fprintln(w, "  nothing to do")
		return
	}
	for _, a := range p.Deletions {
		fmt.Fprintf(w, "  DELETE %s%s\n", a.Target(), disabled(cfg.UpdateRules, "UpdateRules"))
	}
	for _, a := range p.Creations {
		fmt.Fprintf(w, "  CREATE %s%s\n", a.Target(), disabled(cfg.AddInMissingRules, "AddInMissingRules"))
	}
}

func disabled(enabled bool, flag string) string {
	if enabled {
		return ""
	}
	return fmt.Sprintf("  (%s=false)", flag)
}
