package banner

import (
	"fmt"

	"baatcheet/pkg/config"
)

const banner = `
██████╗  █████╗  █████╗ ████████╗ ██████╗██╗  ██╗███████╗███████╗████████╗
██╔══██╗██╔══██╗██╔══██╗╚══██╔══╝██╔════╝██║  ██║██╔════╝██╔════╝╚══██╔══╝
██████╔╝███████║███████║   ██║   ██║     ███████║█████╗  █████╗     ██║
██╔══██╗██╔══██║██╔══██║   ██║   ██║     ██╔══██║██╔══╝  ██╔══╝     ██║
██████╔╝██║  ██║██║  ██║   ██║   ╚██████╗██║  ██║███████╗███████╗   ██║
╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝    ╚═════╝╚═╝  ╚═╝╚══════╝╚══════╝   ╚═╝
`

// Print prints the startup banner using the effective config so runtime
// info (addr, db path, config source) is displayed centrally.
func Print(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Server.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config:   %s\n", src)

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET  /ws?token=<tok>                   - live channel (websocket)")
	fmt.Println("GET  /v1/users                         - roster with presence")
	fmt.Println("GET  /v1/conversations                 - conversations, newest first")
	fmt.Println("GET  /v1/users/{id}/messages?cursor=   - history with a user")
	fmt.Println("POST /v1/messages                      - send a message")
	fmt.Println("POST /v1/messages/{id}/seen            - mark a message seen")

	fmt.Println("\n== Production? =================================================")
	sk := 0
	be := 0
	if eff.Config != nil {
		sk = len(eff.Config.Security.SigningKeys)
		be = len(eff.Config.Security.APIKeys.Backend)
	}
	if sk > 0 {
		fmt.Printf("- Signing keys: OK (%d)\n", sk)
	} else {
		fmt.Println("- Signing keys: MISSING (required to verify session tokens)")
	}
	if be > 0 {
		fmt.Printf("- Backend API keys: OK (%d)\n", be)
	} else {
		fmt.Println("- Backend API keys: MISSING (required for provisioning)")
	}
	tlsOK := eff.Config != nil && eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != ""
	if tlsOK {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}

	fmt.Println("\n== Logs: =================================================")
}
