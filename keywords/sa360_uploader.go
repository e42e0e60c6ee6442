package keywords

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// BulksheetUploader delivers an encoded bulksheet to SA360.
type BulksheetUploader interface {
	UploadBulksheet(ctx context.Context, filename string, data []byte) error
}

// SFTPDialer opens an SFTP session. The returned func closes the session
// and its underlying connection.
type SFTPDialer func(ctx context.Context) (*sftp.Client, func() error, error)

// SA360Uploader writes bulksheets to the SA360 partner SFTP endpoint.
// It embeds *RunContext for shared run configuration.
type SA360Uploader struct {
	*RunContext
	Dial SFTPDialer
}

func NewSA360Uploader(rc *RunContext, password string) *SA360Uploader {
	return &SA360Uploader{
		RunContext: rc,
		Dial:       PasswordSFTPDialer(rc.Config.SA360, password),
	}
}

// PasswordSFTPDialer logs in with a username and password. SA360 does not
// publish its host keys so any host key is accepted.
func PasswordSFTPDialer(settings SA360Settings, password string) SFTPDialer {
	return func(ctx context.Context) (*sftp.Client, func() error, error) {
		addr := net.JoinHostPort(settings.Hostname, strconv.Itoa(settings.Port))
		sshConfig := &ssh.ClientConfig{
			User:            settings.Username,
			Auth:            []ssh.AuthMethod{ssh.Password(password)},
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         SFTPDialTimeout,
		}

		dialer := net.Dialer{Timeout: SFTPDialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to %s %w", addr, err)
		}
		var sshClient *ssh.Client
		var client *sftp.Client
		err = guardConn(ctx, conn, func() error {
			sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
			if err != nil {
				return fmt.Errorf("failed ssh handshake with %s %w", addr, err)
			}
			sshClient = ssh.NewClient(sshConn, chans, reqs)
			if client, err = sftp.NewClient(sshClient); err != nil {
				return fmt.Errorf("failed to start sftp session %w", err)
			}
			return nil
		})
		if err != nil {
			if sshClient != nil {
				sshClient.Close()
			}
			conn.Close()
			return nil, nil, err
		}
		return client, func() error {
			return errors.Join(client.Close(), sshClient.Close())
		}, nil
	}
}

// guardConn runs setup with a deadline on conn of SFTPDialTimeout or the
// context deadline, whichever is sooner, and ends it early if ctx is
// cancelled. ssh.NewClientConn and sftp.NewClient have no timeout of their own.
func guardConn(ctx context.Context, conn net.Conn, setup func() error) error {
	deadline := time.Now().Add(SFTPDialTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	err := setup()
	stopped := stop()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(ctxErr, err)
		}
		if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
			// the conn deadline can fire just before the context timer
			return errors.Join(context.DeadlineExceeded, err)
		}
		return err
	}
	if !stopped {
		return ctx.Err()
	}
	return conn.SetDeadline(time.Time{})
}

func (u *SA360Uploader) UploadBulksheet(ctx context.Context, filename string, data []byte) error {
	client, closeFn, err := u.Dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpload, err)
	}
	defer closeFn()

	remotePath := filename
	if u.Config.SA360.RemoteDir != "" {
		remotePath = path.Join(u.Config.SA360.RemoteDir, filename)
	}
	f, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("%w: failed to create %s %w", ErrUpload, remotePath, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("%w: failed to write %s %w", ErrUpload, remotePath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s %w", ErrUpload, remotePath, err)
	}
	u.Logger.Info("uploaded bulksheet", "host", u.Config.SA360.Hostname, "path", remotePath, "bytes", len(data))
	return nil
}
