package serial

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tebeka/atexit"
	"golang.org/x/sys/unix"
)

// PTY is the master side of a pseudo-terminal. Terminal programs attach to
// its slave, or to the symlink given at open time.
type PTY struct {
	fd    int
	slave string
	link  string

	closeOnce sync.Once
	closeErr  error
}

// OpenPTY opens a pseudo-terminal in raw mode. If link is not empty, it is
// made a symlink to the slave device, replacing any symlink already there,
// and removed when the PTY is closed or the program exits. The line starts
// out hung up.
func OpenPTY(link string) (*PTY, error) {
	fd, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "openpt")
	}

	p := &PTY{fd: fd, link: link}

	if err := p.setup(); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if link != "" {
		atexit.Register(p.removeLink)
	}

	return p, nil
}

func (p *PTY) setup() error {
	n, err := unix.IoctlGetUint32(p.fd, unix.TIOCGPTN)
	if err != nil {
		return errors.Wrap(err, "ptsname")
	}

	p.slave = fmt.Sprintf("/dev/pts/%d", n)

	if p.link != "" {
		if err := replaceSymlink(p.slave, p.link); err != nil {
			return err
		}
	}

	if _, err := MakeRaw(p.fd); err != nil {
		p.removeLink()
		return err
	}

	if err := unix.IoctlSetPointerInt(p.fd, unix.TIOCSPTLCK, 0); err != nil {
		p.removeLink()
		return errors.Wrap(err, "unlockpt")
	}

	// Opening and closing the slave once makes the master report a hang-up
	// until a terminal program attaches.
	sfd, err := unix.Open(p.slave, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		p.removeLink()
		return errors.Wrap(err, "open slave")
	}
	unix.Close(sfd)

	return nil
}

func replaceSymlink(target, link string) error {
	if fi, err := os.Lstat(link); err == nil {
		if fi.Mode()&os.ModeSymlink == 0 {
			return errors.Errorf("symlink: %s exists and is not a symlink", link)
		}

		if err := os.Remove(link); err != nil {
			return errors.Wrap(err, "remove old symlink")
		}
	}

	return errors.Wrap(os.Symlink(target, link), "symlink")
}

func (p *PTY) removeLink() {
	if p.link == "" {
		return
	}

	if target, err := os.Readlink(p.link); err == nil && target == p.slave {
		_ = os.Remove(p.link)
	}
}

// Name returns the slave device path.
func (p *PTY) Name() string {
	return p.slave
}

// Link returns the symlink to the slave, if any.
func (p *PTY) Link() string {
	return p.link
}

// Poll waits up to timeout for input or a hang-up.
func (p *PTY) Poll(timeout time.Duration) (PollResult, error) {
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
	ts := unix.NsecToTimespec(timeout.Nanoseconds())

	n, err := unix.Ppoll(fds, &ts, nil)
	if err == unix.EINTR {
		return PollResult{}, nil
	}

	if err != nil {
		return PollResult{}, errors.Wrap(err, "ppoll")
	}

	revents := fds[0].Revents

	return PollResult{
		Readable: n > 0 && revents&unix.POLLIN != 0,
		HungUp:   revents&unix.POLLHUP != 0,
	}, nil
}

// Read reads from the master side.
func (p *PTY) Read(b []byte) (int, error) {
	n, err := unix.Read(p.fd, b)
	if n < 0 {
		n = 0
	}

	return n, errors.Wrap(err, "read pty")
}

// Write writes to the master side.
func (p *PTY) Write(b []byte) (int, error) {
	n, err := unix.Write(p.fd, b)
	if n < 0 {
		n = 0
	}

	return n, errors.Wrap(err, "write pty")
}

// Close closes the master and removes the symlink.
func (p *PTY) Close() error {
	p.closeOnce.Do(func() {
		p.removeLink()
		p.closeErr = errors.Wrap(unix.Close(p.fd), "close pty")
	})

	return p.closeErr
}

// MakeRaw puts the terminal fd in raw mode and returns a function that
// restores the previous settings.
func MakeRaw(fd int) (func() error, error) {
	old, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, errors.Wrap(err, "tcgetattr")
	}

	raw := *old
	raw.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, errors.Wrap(err, "tcsetattr")
	}

	restore := func() error {
		return errors.Wrap(unix.IoctlSetTermios(fd, unix.TCSETS, old),
			"restore termios")
	}

	return restore, nil
}
