package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/KafClaw/commander/internal/cliconfig"
)

var (
	doctorFix                  bool
	doctorGenerateGatewayToken bool
	doctorProblemsOnly         bool
)

var doctorLabels = map[cliconfig.DoctorStatus]func(format string, a ...interface{}) string{
	cliconfig.DoctorPass: color.GreenString,
	cliconfig.DoctorWarn: color.YellowString,
	cliconfig.DoctorFail: color.RedString,
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check config, keys, voice dir, timeline and sinks before serving",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := cliconfig.RunDoctorWithOptions(cliconfig.DoctorOptions{
			Fix:                  doctorFix,
			GenerateGatewayToken: doctorGenerateGatewayToken,
		})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		counts := map[cliconfig.DoctorStatus]int{}
		for _, check := range report.Checks {
			counts[check.Status]++
			if doctorProblemsOnly && check.Status == cliconfig.DoctorPass {
				continue
			}
			label := doctorLabels[check.Status]("[%s]", doctorSymbol(check.Status))
			fmt.Fprintf(w, "%s %s: %s\n", label, check.Name, check.Message)
		}
		fmt.Fprintf(w, "%d passed, %d warning(s), %d failed\n",
			counts[cliconfig.DoctorPass], counts[cliconfig.DoctorWarn], counts[cliconfig.DoctorFail])

		if report.HasFailures() {
			return fmt.Errorf("doctor found %d failing check(s); commander serve may refuse to start or expose /api", counts[cliconfig.DoctorFail])
		}
		return nil
	},
}

func doctorSymbol(s cliconfig.DoctorStatus) string {
	switch s {
	case cliconfig.DoctorWarn:
		return "WARN"
	case cliconfig.DoctorFail:
		return "FAIL"
	}
	return "PASS"
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Merge discovered env files (./.env, ~/.commander) into ~/.config/commander/env")
	doctorCmd.Flags().BoolVar(&doctorGenerateGatewayToken, "generate-gateway-token", false, "Generate and save gateway.authToken for /api")
	doctorCmd.Flags().BoolVar(&doctorProblemsOnly, "problems", false, "Only print warnings and failures")
	rootCmd.AddCommand(doctorCmd)
}
