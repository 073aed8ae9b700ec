package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dBlob/rpc/common"
	"github.com/ValentinKolb/dBlob/rpc/serializer"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCClientFlags adds common client connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "endpoints"
	cmd.PersistentFlags().String(key, "localhost:8080", WrapString("The address of the dBlob server. Multiple endpoints can be specified as a comma-separated list, requests are balanced across them"))

	key = "network-conn-per-endpoint"
	cmd.PersistentFlags().Int(key, common.DefaultMaxConnectionsPerEndpoint, WrapString("Maximum simultaneous connections per endpoint"))

	key = "network-checkout-timeout"
	cmd.PersistentFlags().Int(key, common.DefaultCheckoutTimeoutMs, WrapString("How long a request may wait for a free connection before it fails (in ms)"))

	key = "network-poll-timeout"
	cmd.PersistentFlags().Int(key, common.DefaultPollTimeoutMs, WrapString("Upper bound for a single network poll (in ms)"))

	key = "network-fail-fast"
	cmd.PersistentFlags().Bool(key, false, WrapString("Fail requests immediately when the connection pool is exhausted instead of queueing them"))

	key = "socket-send-buffer"
	cmd.PersistentFlags().Int(key, common.DefaultSendBufferBytes/1024, WrapString("The size of the socket send buffer (in KB)"))

	key = "socket-recv-buffer"
	cmd.PersistentFlags().Int(key, common.DefaultRecvBufferBytes/1024, WrapString("The size of the socket receive buffer (in KB)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warning", WrapString("Log level (debug, info, warning, error)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dblob")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	conf := &common.ClientConfig{
		TimeoutSecond: viper.GetInt("timeout"),
		Endpoints:     strings.Split(viper.GetString("endpoints"), ","),
		Network: common.NetworkConf{
			CheckoutTimeoutMs:         viper.GetInt("network-checkout-timeout"),
			PollTimeoutMs:             viper.GetInt("network-poll-timeout"),
			MaxConnectionsPerEndpoint: viper.GetInt("network-conn-per-endpoint"),
			FailFastOnPoolExhaustion:  viper.GetBool("network-fail-fast"),
		},
		Socket: common.SocketConf{
			SendBufferBytes: viper.GetInt("socket-send-buffer") * 1024,
			RecvBufferBytes: viper.GetInt("socket-recv-buffer") * 1024,
		},
		LogLevel: viper.GetString("log-level"),
	}

	return conf
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch viper.GetString("serializer") {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	case "binary":
		return serializer.NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
