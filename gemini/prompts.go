/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package gemini

import "fmt"

func pairPrompt(title string) string {
	return fmt.Sprintf(`我們正在製作遊戲，請幫我們生成兩個有趣的"%[1]s"，需與最新時勢、潮流、或梗有關。每個"%[1]s"用1~3個單詞表達即可，例如:醜陋的哥布林。僅回傳 JSON 即可。`, title)
}

func singlePrompt(title string) string {
	return fmt.Sprintf(`我們正在製作遊戲，請幫我們生成一個有趣的"%s"。用1~3個單詞表達並僅回傳這樣就好。例如:醜陋的哥布林`, title)
}

func imagePrompt(theme string) string {
	return fmt.Sprintf(`主題為"%s"，幫我生成一張漫畫風格的搞笑圖片。僅回傳圖片。`, theme)
}
