package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"dump iq", DumpIQ{Band5G: true, FileName: "hb_iq_0_0_01.txt"}, `{"DumpIQ":{"band_5g":true,"file_name":"hb_iq_0_0_01.txt"}}`},
		{"delete files", DelFiles{}, `"DelFiles"`},
		{"copy files", CopyFiles{FileName: "lb_iq_1_0_00.txt"}, `{"CopyFiles":"lb_iq_1_0_00.txt"}`},
		{"set register", SetReg{Addr: 0x30c02f88, Value: 0x2d170d17}, `{"SetReg":{"addr":817901448,"value":756485399}}`},
		{"shell keeps redirection", ShellCmd{Text: "echo 1 > /tmp/x"}, `{"ShellCmd":"echo 1 > /tmp/x"}`},
		{"ate init", ATEInit{}, `"ATEInit"`},
		{"ate command", ATECmd{Cmd: "ifconfig", Args: []string{"wlan0", "up"}}, `{"ATECmd":{"cmd":"ifconfig","args":["wlan0","up"]}}`},
		{"ate command without args", ATECmd{Cmd: "ate_cmd"}, `{"ATECmd":{"cmd":"ate_cmd","args":[]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeCommand(tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))

			decoded, err := DecodeCommand(got)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd.Tag(), decoded.Tag())
		})
	}
}

func TestDecodeCommandValues(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"SetReg":{"addr":1,"value":2}}` + "\n"))
	require.NoError(t, err)
	assert.Equal(t, SetReg{Addr: 1, Value: 2}, cmd)

	cmd, err = DecodeCommand([]byte(`{"CopyFiles":"a.txt"}`))
	require.NoError(t, err)
	assert.Equal(t, CopyFiles{FileName: "a.txt"}, cmd)
}

func TestDecodeCommandRejectsUnknown(t *testing.T) {
	for _, line := range []string{`"Reboot"`, `{"Reboot":1}`, `{"SetReg":{},"ShellCmd":"x"}`, ``, `[1]`} {
		_, err := DecodeCommand([]byte(line))
		assert.Error(t, err, line)
	}

	_, err := DecodeCommand([]byte(`"Reboot"`))
	assert.True(t, errors.Is(err, ErrUnknownCommand))
}

func TestDecodeResponse(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"is_error":false,"file_size":4096}` + "\n"))
	require.NoError(t, err)
	assert.Equal(t, Response{IsError: false, FileSize: 4096}, resp)

	resp, err = DecodeResponse([]byte(`{"is_error":true,"file_size":0}`))
	require.NoError(t, err)
	assert.True(t, resp.IsError)

	for _, line := range []string{"garbage", `{"is_error":false}`, `{"file_size":1}`, `{"is_error":"no","file_size":1}`} {
		_, err := DecodeResponse([]byte(line))
		var protoErr *ProtocolError
		assert.True(t, errors.As(err, &protoErr), line)
		assert.True(t, IsFatal(err), line)
	}
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(&ConnectionError{Op: "read", Err: errors.New("reset")}))
	assert.True(t, IsFatal(&ProtocolError{Line: "x", Err: errors.New("bad")}))
	assert.False(t, IsFatal(&DeviceError{Command: "DumpIQ"}))
	assert.False(t, IsFatal(&TransferIncompleteError{FileName: "a", Received: 1, Expected: 2}))
	assert.False(t, IsFatal(&FileIOError{Op: "create", Path: "a", Err: errors.New("denied")}))
	assert.False(t, IsFatal(nil))
}
