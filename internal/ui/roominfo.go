package ui

import "fmt"

// RoomInfo is the card printed after a room is created.
type RoomInfo struct {
	RoomKey string
}

func NewRoomInfo(roomKey string) *RoomInfo {
	return &RoomInfo{RoomKey: roomKey}
}

func (r *RoomInfo) View() string {
	content := fmt.Sprintf("%s Room Created!\n\n%s Room Key:  %s\n%s Share it:  %s",
		IconSuccess,
		IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomKey),
		IconRoom, MutedStyle.Render("voicesync join "+r.RoomKey),
	)
	return SuccessBoxStyle.Render(content)
}

func (r *RoomInfo) Render() {
	fmt.Println(r.View())
}
