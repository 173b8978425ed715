package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rbright/autostart/internal/profile"
)

type Command string

const (
	CommandRun     Command = "run"
	CommandResolve Command = "resolve"
	CommandDevices Command = "devices"
	CommandPlans   Command = "plans"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandRun:     {},
	CommandResolve: {},
	CommandDevices: {},
	CommandPlans:   {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

// takesProfile lists commands whose single operand is a profile path.
var takesProfile = map[Command]struct{}{
	CommandRun:     {},
	CommandResolve: {},
}

type Parsed struct {
	Command     Command
	ConfigPath  string
	ProfilePath string
	// JSON selects machine-readable output for listing commands.
	JSON     bool
	ShowHelp bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	haveCommand := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--json":
			parsed.JSON = true
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			if haveCommand {
				if _, ok := takesProfile[parsed.Command]; ok && parsed.ProfilePath == "" {
					parsed.ProfilePath = arg
					continue
				}
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
			}

			// A bare profile path is how the OS autostart entry invokes us.
			if profile.HasExtension(arg) {
				parsed.Command = CommandRun
				parsed.ProfilePath = arg
				parsed.ShowHelp = false
				haveCommand = true
				continue
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			haveCommand = true
		}
	}

	if _, ok := takesProfile[parsed.Command]; ok && parsed.ProfilePath == "" {
		return Parsed{}, fmt.Errorf("%s requires a profile path", parsed.Command)
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] PROFILE.autostart
  %[1]s [--config PATH] [--json] <command> [PROFILE]

Commands:
  run PROFILE       Execute every action in a profile, in order
  resolve PROFILE   Back-fill audio device ids in a profile and save it
  devices           List playback and recording endpoints
  plans             List power plans
  doctor            Run configuration and backend checks
  version           Print version information
  help              Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/autostart/config.jsonc)
  --json          JSON output for devices and plans
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
