package util

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/terndb/tern-go/rpc/codec"
	"github.com/terndb/tern-go/rpc/common"
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

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 60, WrapString("The per-request timeout in seconds"))

	key = "endpoint"
	cmd.PersistentFlags().String(key, "localhost:8887", WrapString("The host:port of the tern server"))

	key = "username"
	cmd.PersistentFlags().String(key, "", WrapString("Username for the SCRAM handshake (empty disables authentication)"))

	key = "password"
	cmd.PersistentFlags().String(key, "", WrapString("Password for the SCRAM handshake"))

	key = "max-inflight"
	cmd.PersistentFlags().Int(key, 0, WrapString("Maximum number of concurrently outstanding requests (0 means the protocol maximum of 65536)"))

	key = "max-frame-size"
	cmd.PersistentFlags().Int(key, 0, WrapString("Maximum wire frame size in bytes (0 means the built-in default)"))

	key = "write-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the socket write buffer (in KB)"))

	key = "read-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the socket read buffer (in KB)"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY on the connection"))

	key = "tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The TCP keepalive interval (in seconds, 0 leaves the OS default)"))

	key = "tcp-linger"
	cmd.PersistentFlags().Int(key, 0, WrapString("The TCP linger time (in seconds, 0 leaves the OS default)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warning", WrapString("Log level (debug, info, warning, error)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("tern")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	conf := &common.ClientConfig{
		Credentials: common.Credentials{
			Username: viper.GetString("username"),
			Password: viper.GetString("password"),
		},
		TimeoutSecond: viper.GetInt("timeout"),
		MaxInflight:   viper.GetInt("max-inflight"),
		Transport: common.ClientTransportConfig{
			Endpoint:     viper.GetString("endpoint"),
			MaxFrameSize: uint32(viper.GetInt("max-frame-size")),
			SocketConf: common.SocketConf{
				WriteBufferSize: viper.GetInt("write-buffer") * 1024,
				ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
			},
			TCPConf: common.TCPConf{
				TCPNoDelay:      viper.GetBool("tcp-nodelay"),
				TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
				TCPLingerSec:    viper.GetInt("tcp-linger"),
			},
		},
		LogLevel: viper.GetString("log-level"),
	}

	return conf
}

// GetCodec creates a PDU codec based on configuration
func GetCodec() (codec.IPduCodec, error) {
	switch viper.GetString("serializer") {
	case "json":
		return codec.NewJSONCodec(), nil
	case "gob":
		return codec.NewGOBCodec(), nil
	case "binary":
		return codec.NewBinaryCodec(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
