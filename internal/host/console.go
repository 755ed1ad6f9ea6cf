package host

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrNotHostCommand is returned for lines that should be treated as chat.
var ErrNotHostCommand = errors.New("not a host command")

const consoleHelp = `host commands:
  /give <item> [count]          add items to the player inventory
  /slot <index> <item> <count>  set a player inventory slot
  /inv                          list the player inventory
  /open <kind> <x> <y> <z> [size]
                                open a storage screen (chest, barrel, ...)
  /put <slot> <item> <count>    set a slot in the open storage screen
  /take <slot>                  empty a slot in the open storage screen
  /inventory                    open the player inventory screen
  /crafting                     open a crafting table screen
  /close                        close the current screen
  /near <block> [distance]      place a block near the player (-1 removes)
  /recv <text>                  simulate an incoming game chat line
  /leave, /join                 leave or rejoin the world
anything else is typed into chat`

// Console drives a Headless host from text lines, one per command.
type Console struct {
	host *Headless
}

func NewConsole(h *Headless) *Console {
	return &Console{host: h}
}

// Exec runs one host command. Lines that are not host commands return
// ErrNotHostCommand so the caller can route them as chat input.
func (c *Console) Exec(line string) (string, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", ErrNotHostCommand
	}
	fields := strings.Fields(line)
	name, args := strings.TrimPrefix(fields[0], "/"), fields[1:]

	switch name {
	case "help":
		return consoleHelp, nil
	case "give":
		if len(args) < 1 {
			return "", errors.New("usage: /give <item> [count]")
		}
		count := 1
		if len(args) > 1 {
			n, err := positive(args[1])
			if err != nil {
				return "", err
			}
			count = n
		}
		if !c.host.Give(args[0], count) {
			return "", errors.New("inventory full")
		}
		return fmt.Sprintf("gave %s x%d", normalizeID(args[0]), count), nil
	case "slot":
		if len(args) != 3 {
			return "", errors.New("usage: /slot <index> <item> <count>")
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil || idx < 0 || idx >= playerInventorySize {
			return "", fmt.Errorf("bad slot index %q", args[0])
		}
		n, err := strconv.Atoi(args[2])
		if err != nil || n < 0 {
			return "", fmt.Errorf("bad count %q", args[2])
		}
		c.host.SetInventorySlot(idx, ItemStack{ID: args[1], Count: n})
		return "ok", nil
	case "inv":
		return formatInventory(c.host.PlayerInventory()), nil
	case "open":
		if len(args) < 4 {
			return "", errors.New("usage: /open <kind> <x> <y> <z> [size]")
		}
		var pos [3]int
		for i := 0; i < 3; i++ {
			v, err := strconv.Atoi(args[i+1])
			if err != nil {
				return "", fmt.Errorf("bad coordinate %q", args[i+1])
			}
			pos[i] = v
		}
		size := 27
		if len(args) > 4 {
			n, err := positive(args[4])
			if err != nil {
				return "", err
			}
			size = n
		}
		id := c.host.OpenStorage(args[0], pos, size)
		return fmt.Sprintf("opened %s sync_id=%d", args[0], id), nil
	case "put":
		if len(args) != 3 {
			return "", errors.New("usage: /put <slot> <item> <count>")
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			return "", fmt.Errorf("bad slot %q", args[0])
		}
		n, err := strconv.Atoi(args[2])
		if err != nil || n < 0 {
			return "", fmt.Errorf("bad count %q", args[2])
		}
		if !c.host.SetContainerSlot(idx, ItemStack{ID: args[1], Count: n}) {
			return "", errors.New("no storage screen open or slot out of range")
		}
		return "ok", nil
	case "take":
		if len(args) != 1 {
			return "", errors.New("usage: /take <slot>")
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			return "", fmt.Errorf("bad slot %q", args[0])
		}
		if !c.host.SetContainerSlot(idx, ItemStack{}) {
			return "", errors.New("no storage screen open or slot out of range")
		}
		return "ok", nil
	case "inventory":
		c.host.OpenInventory()
		return "inventory open", nil
	case "crafting":
		c.host.OpenCraftingTable()
		return "crafting table open", nil
	case "close":
		c.host.CloseScreen()
		return "closed", nil
	case "near":
		if len(args) < 1 {
			return "", errors.New("usage: /near <block> [distance]")
		}
		dist := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return "", fmt.Errorf("bad distance %q", args[1])
			}
			dist = n
		}
		c.host.SetNearby(args[0], dist)
		return "ok", nil
	case "recv":
		c.host.ReceiveGameMessage(strings.TrimSpace(strings.TrimPrefix(line, fields[0])))
		return "", nil
	case "leave":
		c.host.LeaveWorld()
		return "left world", nil
	case "join":
		c.host.JoinWorld()
		return "joined world", nil
	}
	return "", fmt.Errorf("unknown host command %q (try /help)", name)
}

func positive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("bad count %q", s)
	}
	return n, nil
}

func formatInventory(inv []ItemStack) string {
	lines := make([]string, 0, len(inv))
	for i, s := range inv {
		if s.Empty() {
			continue
		}
		lines = append(lines, fmt.Sprintf("%2d %s x%d", i, s.ID, s.Count))
	}
	if len(lines) == 0 {
		return "inventory empty"
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
