// Command yerbactl is a small client for yerbad's request/reply socket.
package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lngonzalezg/yerba/pkg/version"
)

const dialTimeout = 2 * time.Second

func main() {
	var socketPath string

	root := &cobra.Command{
		Use:     "yerbactl",
		Short:   "client for the Yerba workflow scheduling daemon",
		Version: version.GetShortVersion(),
	}
	root.PersistentFlags().StringVar(&socketPath, "socket", "/var/run/yerbad.sock", "path to yerbad's request/reply socket")

	root.AddCommand(
		healthCmd(&socketPath),
		scheduleCmd(&socketPath),
		cancelCmd(&socketPath),
		statusCmd(&socketPath),
		workflowsCmd(&socketPath),
		shutdownCmd(&socketPath),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func healthCmd(socketPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "check daemon health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return request(*socketPath, "health", nil)
		},
	}
}

func scheduleCmd(socketPath *string) *cobra.Command {
	var specPath string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "submit a workflow specification",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(specPath)
			if err != nil {
				return err
			}
			var spec json.RawMessage = data
			return request(*socketPath, "schedule", spec)
		},
	}
	cmd.Flags().StringVar(&specPath, "spec", "", "path to a workflow specification JSON file")
	_ = cmd.MarkFlagRequired("spec")
	return cmd
}

func cancelCmd(socketPath *string) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "cancel a workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return request(*socketPath, "cancel", mustJSON(map[string]int64{"id": id}))
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "workflow id")
	return cmd
}

func statusCmd(socketPath *string) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "status",
		Short: "get a workflow's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return request(*socketPath, "get_status", mustJSON(map[string]int64{"id": id}))
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "workflow id")
	return cmd
}

func workflowsCmd(socketPath *string) *cobra.Command {
	var ids []int64
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "list workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(ids) == 0 {
				return request(*socketPath, "workflows", nil)
			}
			return request(*socketPath, "workflows", mustJSON(map[string][]int64{"ids": ids}))
		},
	}
	cmd.Flags().Int64SliceVar(&ids, "ids", nil, "restrict to these workflow ids")
	return cmd
}

func shutdownCmd(socketPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "ask the daemon to stop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(*socketPath, "shutdown", nil, false)
		},
	}
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func request(socketPath, name string, data json.RawMessage) error {
	return send(socketPath, name, data, true)
}

func send(socketPath, name string, data json.RawMessage, wantReply bool) error {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", socketPath, err)
	}
	defer conn.Close()

	payload, err := json.Marshal(map[string]any{"request": name, "data": data})
	if err != nil {
		return err
	}
	if err := writeFrame(conn, payload); err != nil {
		return err
	}
	if !wantReply {
		return nil
	}

	resp, err := readFrame(conn)
	if err != nil {
		return err
	}
	fmt.Println(string(resp))
	return nil
}

func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	payload := make([]byte, n)
	_, err := io.ReadFull(r, payload)
	return payload, err
}
