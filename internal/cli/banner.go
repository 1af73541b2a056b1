package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

const banner = `
             _                           _     _
  __ _  __ _| |_ _____      ____ _ _   _| | __| |
 / _' |/ _' | __/ _ \ \ /\ / / _' | | | | |/ _' |
| (_| | (_| | ||  __/\ V  V / (_| | |_| | | (_| |
 \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |_|\__,_|
 |___/                             |___/
`

type bannerInfo struct {
	Version       string
	Addr          string
	GatewayConfig string
	ConfigSource  string
	Command       string
	Username      string
	// GeneratedPassword is set only when no admin password was configured.
	GeneratedPassword string
}

// printBanner writes the startup banner. A generated admin password is
// shown here and nowhere else.
func printBanner(w io.Writer, info bannerInfo) {
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow, color.Bold)

	cyan.Fprint(w, banner)
	gray.Fprintf(w, "    version: %s\n\n", info.Version)

	row := func(label, value string) {
		green.Fprint(w, "    ▶ ")
		fmt.Fprintf(w, "%-10s %s\n", label+":", value)
	}
	row("HTTP", info.Addr)
	row("Config", fmt.Sprintf("%s (%s)", info.GatewayConfig, info.ConfigSource))
	row("Gateway", info.Command)
	row("Admin", info.Username)
	if info.GeneratedPassword != "" {
		fmt.Fprintln(w)
		yellow.Fprint(w, "    ! ")
		fmt.Fprintf(w, "Generated admin password: ")
		yellow.Fprintln(w, info.GeneratedPassword)
		gray.Fprintln(w, "      It is not stored; set ADMIN_PASSWORD to keep a fixed one.")
	}
	fmt.Fprintln(w)
}
