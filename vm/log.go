package vm

import (
	"github.com/tliron/commonlog"
)

var vmLog = commonlog.GetLogger("interpose.vm")
