package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/jandubois/clusterwatch/internal/config"
)

const unitName = "clusterwatch.service"

var systemdUnit = `[Unit]
Description=Clusterwatch cluster health monitor
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart={{.Executable}} run --config {{.ConfigPath}} --log-format json
{{- if .EnvironmentFile}}
EnvironmentFile={{.EnvironmentFile}}
{{- end}}
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`

type unitData struct {
	Executable      string
	ConfigPath      string
	EnvironmentFile string
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install clusterwatch as a systemd service (Linux)",
	Long: `Install writes a systemd unit that runs "clusterwatch run" at boot and
restarts it if it fails, then enables and starts it.

Secrets such as the Galera DSN, RADIUS secret and API token are read from
the environment; put them in the file given by --env-file.`,
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the clusterwatch systemd service (Linux)",
	RunE:  runUninstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)

	installCmd.Flags().String("unit-dir", "/etc/systemd/system", "Directory for the unit file")
	installCmd.Flags().String("env-file", "/etc/clusterwatch/clusterwatch.env", "EnvironmentFile for secrets (empty to omit)")
	installCmd.Flags().Bool("no-start", false, "Write the unit without enabling or starting it")
	uninstallCmd.Flags().String("unit-dir", "/etc/systemd/system", "Directory of the unit file")
}

func runInstall(cmd *cobra.Command, args []string) error {
	if runtime.GOOS != "linux" {
		return fmt.Errorf("install command is only supported on Linux")
	}

	unitDir, _ := cmd.Flags().GetString("unit-dir")
	envFile, _ := cmd.Flags().GetString("env-file")
	noStart, _ := cmd.Flags().GetBool("no-start")
	configFlag, _ := cmd.Flags().GetString("config")

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	executable, err = filepath.EvalSymlinks(executable)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	configPath, err := filepath.Abs(config.ResolvePath(configFlag))
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}
	if _, err := loadConfig(cmd); err != nil {
		return fmt.Errorf("refusing to install with an invalid config: %w", err)
	}

	if err := os.MkdirAll(unitDir, 0755); err != nil {
		return fmt.Errorf("failed to create unit directory: %w", err)
	}
	unitPath := filepath.Join(unitDir, unitName)

	tmpl, err := template.New("unit").Parse(systemdUnit)
	if err != nil {
		return fmt.Errorf("failed to parse unit template: %w", err)
	}
	f, err := os.Create(unitPath)
	if err != nil {
		return fmt.Errorf("failed to create unit file: %w", err)
	}
	defer f.Close()

	data := unitData{
		Executable:      executable,
		ConfigPath:      configPath,
		EnvironmentFile: envFile,
	}
	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write unit: %w", err)
	}

	fmt.Printf("Wrote %s\n", unitPath)
	if noStart {
		return nil
	}

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	if err := systemctl("enable", "--now", unitName); err != nil {
		return err
	}
	fmt.Printf("Enabled and started %s\n", unitName)
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	if runtime.GOOS != "linux" {
		return fmt.Errorf("uninstall command is only supported on Linux")
	}

	unitDir, _ := cmd.Flags().GetString("unit-dir")
	unitPath := filepath.Join(unitDir, unitName)

	if _, err := os.Stat(unitPath); os.IsNotExist(err) {
		return fmt.Errorf("service is not installed")
	}

	if err := systemctl("disable", "--now", unitName); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if err := os.Remove(unitPath); err != nil {
		return fmt.Errorf("failed to remove unit: %w", err)
	}
	if err := systemctl("daemon-reload"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	fmt.Printf("Uninstalled %s\n", unitName)
	return nil
}

func systemctl(args ...string) error {
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %v: %w: %s", args, err, out)
	}
	return nil
}
