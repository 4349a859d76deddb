package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cmdUtil "github.com/ValentinKolb/dIRC/cmd/util"
	"github.com/ValentinKolb/dIRC/irc/common"
	"github.com/ValentinKolb/dIRC/irc/server"
	"github.com/ValentinKolb/dIRC/irc/transport"
	"github.com/ValentinKolb/dIRC/irc/transport/tcp"
	"github.com/ValentinKolb/dIRC/irc/transport/unix"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the IRC server",
		Long:    `Start the IRC server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DIRC_<flag> (e.g. DIRC_NICK_LEN=16)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	defaults := common.DefaultServerConfig()

	// add flags
	key := "server-name"
	ServeCmd.PersistentFlags().String(key, defaults.ServerName, cmdUtil.WrapString("The name of the server, used as prefix of every numeric reply"))

	key = "network"
	ServeCmd.PersistentFlags().String(key, defaults.Network, cmdUtil.WrapString("The name of the network shown in the welcome message"))

	key = "motd"
	ServeCmd.PersistentFlags().String(key, defaults.MOTD, cmdUtil.WrapString("The message of the day. Use \\n to separate lines, empty disables the MOTD"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, defaults.Endpoint, cmdUtil.WrapString("The address on which the server will listen (e.g. 0.0.0.0:6667 or /tmp/dirc.sock for the unix transport)"))

	key = "transport"
	ServeCmd.PersistentFlags().String(key, defaults.Transport, cmdUtil.WrapString("The transport to use (tcp, unix)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, defaults.TCP.TCPNoDelay, cmdUtil.WrapString("Whether to enable TCP_NODELAY on accepted connections"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, defaults.TCP.TCPKeepAliveSec, cmdUtil.WrapString("The keep-alive period of accepted connections in seconds (0 disables keep-alive)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The address of the Prometheus metrics endpoint (e.g. localhost:9100). Empty disables it"))

	key = "nick-len"
	ServeCmd.PersistentFlags().Int(key, defaults.NickLen, cmdUtil.WrapString("The maximum length of a nickname"))

	key = "channel-len"
	ServeCmd.PersistentFlags().Int(key, defaults.ChannelLen, cmdUtil.WrapString("The maximum length of a channel name including the # prefix"))

	key = "max-channels"
	ServeCmd.PersistentFlags().Int(key, defaults.MaxChannelsPerUser, cmdUtil.WrapString("The maximum number of channels a client may join"))

	key = "sendq"
	ServeCmd.PersistentFlags().Int(key, defaults.SendQLength, cmdUtil.WrapString("The maximum number of undelivered lines per client. A client exceeding it is disconnected"))

	key = "max-nodes"
	ServeCmd.PersistentFlags().Int(key, defaults.MaxNodes, cmdUtil.WrapString("The node budget of the nickname and channel trees (0 = unlimited). Commands exceeding it fail with an out of memory error"))

	key = "member-max-nodes"
	ServeCmd.PersistentFlags().Int(key, defaults.MemberMaxNodes, cmdUtil.WrapString("The node budget of the member tree of every channel (0 = unlimited). A join or nick change exceeding it fails with an out of memory error"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, defaults.TimeoutSecond, cmdUtil.WrapString("Idle time in seconds after which a client is pinged. A client not answering within the same time is disconnected (0 disables pings)"))

	key = "cloak-hosts"
	ServeCmd.PersistentFlags().Bool(key, defaults.CloakHosts, cmdUtil.WrapString("Whether to hide client addresses behind a hash"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, defaults.LogLevel, cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	*serveCmdConfig = common.ServerConfig{
		ServerName: viper.GetString("server-name"),
		Network:    viper.GetString("network"),
		MOTD:       strings.ReplaceAll(viper.GetString("motd"), `\n`, "\n"),
		Endpoint:   viper.GetString("endpoint"),
		Transport:  viper.GetString("transport"),
		TCP: common.TCPConf{
			TCPNoDelay:      viper.GetBool("tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
		},
		MetricsEndpoint:    viper.GetString("metrics-endpoint"),
		NickLen:            viper.GetInt("nick-len"),
		ChannelLen:         viper.GetInt("channel-len"),
		MaxChannelsPerUser: viper.GetInt("max-channels"),
		SendQLength:        viper.GetInt("sendq"),
		MaxNodes:           viper.GetInt("max-nodes"),
		MemberMaxNodes:     viper.GetInt("member-max-nodes"),
		TimeoutSecond:      viper.GetInt64("timeout"),
		CloakHosts:         viper.GetBool("cloak-hosts"),
		LogLevel:           viper.GetString("log-level"),
	}

	if err := serveCmdConfig.Validate(); err != nil {
		return err
	}
	return common.InitLoggers(*serveCmdConfig)
}

// run starts the IRC server and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {

	// Parse the transport
	var t transport.IConnector
	switch serveCmdConfig.Transport {
	case "tcp":
		t = tcp.NewConnector()
	case "unix":
		t = unix.NewConnector()
	default:
		return fmt.Errorf("invalid transport %s", serveCmdConfig.Transport)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.NewServer(*serveCmdConfig, t).Serve(ctx)
}
