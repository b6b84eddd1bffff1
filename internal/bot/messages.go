package bot

// Keywords recognised in chat input
const (
	keywordRegister     = "登録情報"
	keywordMark         = "既読"
	keywordDelete       = "削除"
	keywordPin          = "配信内容固定"
	keywordCancelPin    = "固定解除"
	keywordDeliveryTime = "配信時間設定"
	urlMarker           = "http"
	credentialSeparator = "："
)

// Replies sent back to the user
const (
	ReplyRegistered    = "登録が完了しました\nメニューから配信時間を設定すると配信が開始します"
	ReplyEnterURL      = "URLを入力してください"
	ReplyInvalidInput  = "無効な入力内容です"
	ReplyMarked        = "既読を付けました"
	ReplyDeleted       = "削除しました"
	ReplyPinned        = "配信内容を固定しました"
	ReplyPinCancelled  = "配信内容の固定を解除しました"
	ReplyNoteNotFound  = "該当するページが見つかりませんでした\nURLを確認してください"
	ReplyNotRegistered = "先に登録情報を送信してください"
	ReplyPaused        = "配信を一時停止しました\n再開したい場合は、改めて配信時間の設定をしてください"
	ReplyInvalidTime   = "配信時間を読み取れませんでした\nもう一度設定してください"
)

const (
	ReplyRegisterFailed = "登録が出来ませんでした\n以下が原因の可能性があります\n" +
		"・トークンかデータベースIDが間違っている\n" +
		"・データベースのプロパティ名や種類が間違っている\n\n" +
		"正しい情報で再度登録を行って下さい"

	ReplyHelp = "Notionの未読ページを毎日お届けします\n\n" +
		"以下の形式で登録情報を送信してください\n\n" +
		"登録情報\nトークン：<Notionのインテグレーショントークン>\nDB：<データベースID>\n\n" +
		"データベースには「名前」(タイトル)、「URL」(URL)、「read」(セレクト) のプロパティが必要です"
)

func replyTimeSet(deliveryTime string) string {
	return "配信時間が" + deliveryTime + "に設定されました"
}

const (
	pickerPrompt     = "配信時間を設定してください"
	pickerPauseText  = "配信を一時停止したい場合は\n以下のボタンを押してください"
	pickerPauseLabel = "配信を一時停止する"
)
