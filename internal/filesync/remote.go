package filesync

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/oddjob-dev/oddjob/internal/config"
)

// Remote is the read-only surface the download walk needs from a remote
// host. The SFTP client satisfies it through a thin adapter; tests use an
// in-memory fake.
type Remote interface {
	ReadDir(path string) ([]os.FileInfo, error)
	Open(path string) (io.ReadCloser, error)
}

// Dialer connects to one target and returns the remote plus a closer that
// releases the underlying connections.
type Dialer func(target config.Target) (Remote, io.Closer, error)

// DialSFTP opens an SSH session with password auth and an SFTP subsystem on
// top of it. Unknown host keys are accepted, matching the trust model of a
// personal sync tool talking to its own hosts.
func DialSFTP(target config.Target) (Remote, io.Closer, error) {
	sshConfig := &ssh.ClientConfig{
		User:            target.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(target.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}

	addr := net.JoinHostPort(target.Hostname, strconv.Itoa(target.Port))
	sshClient, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, nil, fmt.Errorf("open sftp on %s: %w", addr, err)
	}

	return &sftpRemote{client: sftpClient}, &sftpCloser{sftp: sftpClient, ssh: sshClient}, nil
}

type sftpRemote struct {
	client *sftp.Client
}

func (r *sftpRemote) ReadDir(path string) ([]os.FileInfo, error) {
	return r.client.ReadDir(path)
}

func (r *sftpRemote) Open(path string) (io.ReadCloser, error) {
	return r.client.Open(path)
}

type sftpCloser struct {
	sftp *sftp.Client
	ssh  *ssh.Client
}

func (c *sftpCloser) Close() error {
	err := c.sftp.Close()
	if closeErr := c.ssh.Close(); err == nil {
		err = closeErr
	}
	return err
}
