package flags

import (
	"errors"
	"os"
	"strings"
)

var ErrUnsupportedMode = errors.New("unsupported open mode")

// OpenFlag carries os.O_* bits. bazil fuse.OpenFlags and cgofuse flags use
// the same values on the platforms we mount on.
type OpenFlag uint32

const accessMask = uint32(os.O_RDONLY | os.O_WRONLY | os.O_RDWR)

func (f OpenFlag) WriteAllowed() bool {
	// write allowed if O_WRONLY or O_RDWR is set
	return (uint32(f)&uint32(os.O_WRONLY) != 0) || (uint32(f)&uint32(os.O_RDWR) != 0)
}

func (f OpenFlag) ReadAllowed() bool {
	// read allowed unless open is explicitly write-only
	return uint32(f)&uint32(os.O_WRONLY) == 0
}

func (f OpenFlag) Append() bool {
	return uint32(f)&uint32(os.O_APPEND) != 0
}

func (f OpenFlag) Create() bool {
	return uint32(f)&uint32(os.O_CREATE) != 0
}

func (f OpenFlag) Truncate() bool {
	return uint32(f)&uint32(os.O_TRUNC) != 0
}

func (f OpenFlag) Exclusive() bool {
	return uint32(f)&uint32(os.O_EXCL) != 0
}

// Supported reports whether f asks for plain read or plain write access.
// Read-write and append opens need partial remote updates, which a whole
// resource PUT cannot express.
func (f OpenFlag) Supported() bool {
	if uint32(f)&accessMask == uint32(os.O_RDWR) {
		return false
	}
	return !f.Append()
}

// ParseMode maps r, rb, rt, w, wb and wt to flags. Any other mode, including
// the + variants, append and exclusive create, is unsupported.
func ParseMode(mode string) (OpenFlag, error) {
	switch mode {
	case "r", "rb", "rt":
		return OpenFlag(os.O_RDONLY), nil
	case "w", "wb", "wt":
		return OpenFlag(os.O_WRONLY | os.O_CREATE | os.O_TRUNC), nil
	}
	return 0, ErrUnsupportedMode
}

func (f OpenFlag) String() string {
	flags := []string{}
	if f.ReadAllowed() && f.WriteAllowed() {
		flags = append(flags, "O_RDWR")
	} else if f.ReadAllowed() {
		flags = append(flags, "O_RDONLY")
	} else if f.WriteAllowed() {
		flags = append(flags, "O_WRONLY")
	}
	if f.Append() {
		flags = append(flags, "O_APPEND")
	}
	if f.Create() {
		flags = append(flags, "O_CREATE")
	}
	if f.Truncate() {
		flags = append(flags, "O_TRUNC")
	}
	if f.Exclusive() {
		flags = append(flags, "O_EXCL")
	}
	return strings.Join(flags, "|")
}
