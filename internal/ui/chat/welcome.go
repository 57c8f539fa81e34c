// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// WelcomeCard is a starter prompt offered on an empty conversation.
type WelcomeCard struct {
	Title       string
	Description string
	Template    string
}

// WelcomeCards are shown in order; ctrl+t cycles through their templates.
var WelcomeCards = []WelcomeCard{
	{
		Title:       "특허검색",
		Description: "자연어 질의로 보유특허를 검색합니다.",
		Template:    "특허검색: ",
	},
	{
		Title:       "연구자 분석",
		Description: "보유특허로 연구자의 연구분야를 분석합니다.",
		Template:    "연구자 분석: ",
	},
	{
		Title:       "적용제품 분석",
		Description: "특허기술이 적용가능한 제품을 분석합니다.",
		Template:    "적용제품 분석: ",
	},
	{
		Title:       "사업화 전략분석",
		Description: "수요기업과 라이센싱 전략을 분석합니다.",
		Template:    "사업화 전략분석: ",
	},
}

const (
	welcomeTitle    = "무엇을 도와드릴까요?"
	welcomeSubtitle = "AI 기반 자연어 처리로 맞춤형 특허분석정보를 제공합니다."
)

// nextTemplate returns the template after current. A value that is not a
// template starts the cycle over.
func nextTemplate(current string) string {
	for i, c := range WelcomeCards {
		if c.Template == current {
			return WelcomeCards[(i+1)%len(WelcomeCards)].Template
		}
	}
	return WelcomeCards[0].Template
}
