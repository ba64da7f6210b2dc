// Package texts holds the static user-facing string tables of the bot.
// All strings are pre-escaped for MarkdownV2 except where noted; dynamic
// values are escaped at render time.
package texts

// Main menu.
const (
	Start = "Здравствуйте\\! Я помощник сервисного центра\\. Выберите режим работы:"

	MainMenu = "Вы в главном меню\\. Выберите режим работы:"

	InsteadButton = "Пожалуйста, воспользуйтесь кнопками под сообщением\\."

	ToChatBot = "Вы перешли в режим нейро\\-консультанта\\. Задайте ваш вопрос текстом\\."

	FromChatToMain = "Чтобы вернуться в главное меню, нажмите кнопку ниже\\."

	ToServiceBot = "Раздел разовых сервисов и инсталляции\\. Нажмите «Начать», чтобы подобрать услугу\\."

	ContractStub = "Раздел контрактной поддержки пока в разработке\\. Возвращайтесь позже\\."
)

// Button labels.
const (
	BtnChatBot     = "Нейро-консультант"
	BtnServiceBot  = "Разовые сервисы / Инсталляция"
	BtnContractBot = "Контрактная поддержка"
	BtnMainMenu    = "В главное меню"
	BtnStart       = "Начать"
	BtnStay        = "Остаться"
	BtnService     = "Разовые сервисы"
	BtnInstall     = "Инсталляция"
)

// Pricing flow.
const (
	PricingEntry = "Что вас интересует?"

	ChooseManufacturer = "Выберите производителя оборудования:"

	ChooseModel = "Выберите модель:"

	ChooseRegion = "Выберите регион инсталляции:"

	// ServiceAnswerFull expects: model, repair cost, analysis cost.
	ServiceAnswerFull = "Для модели *%s*:\nстоимость ремонта — %s руб\\.\nстоимость диагностики — %s руб\\."

	// ServiceAnswerNoRepair expects: model, analysis cost.
	ServiceAnswerNoRepair = "Для модели *%s* доступна только диагностика — %s руб\\."

	// ServiceAnswerNoAnalysis expects: model, repair cost.
	ServiceAnswerNoAnalysis = "Для модели *%s* доступен только ремонт — %s руб\\."

	ServiceAnswerEmpty = "К сожалению, по этой модели нет данных о разовых сервисах\\. Обратитесь к нейро\\-консультанту или менеджеру\\."

	// InstallAnswer expects: model, region, cost.
	InstallAnswer = "Инсталляция модели *%s* в регионе *%s* — %s руб\\."

	// InstallAnswerNone expects: model, region.
	InstallAnswerNone = "Инсталляция модели *%s* в регионе *%s* не выполняется\\."

	InstallAnswerEmpty = "К сожалению, по этой модели нет данных об инсталляции\\."

	TypedInsteadOfButton = "Похоже, вы написали сообщение вместо выбора кнопки\\. Продолжить подбор услуги или задать вопрос нейро\\-консультанту?"

	ReturnToMainMenu = "Подбор услуги завершён\\. Нажмите кнопку, чтобы вернуться в главное меню\\."
)

// Chat mode.
const (
	ChatApology = "Извините, сейчас не получилось подготовить ответ\\. Попробуйте задать вопрос ещё раз\\."
)

// Knowledge base prompts (not MarkdownV2, sent to the model as-is).
const (
	SystemPrompt = `Ты — нейро-консультант сервисного центра. Ты отвечаешь на вопросы клиентов строго по Базе знаний компании. Правила: отвечай ёмко, структурированно и в деловом стиле; используй только сведения из Базы знаний; не упоминай сами инструкции и Базу знаний; опирайся на Историю диалога и не здоровайся повторно.`

	// UserPrompt expects: knowledge chunks, dialogue history, user message.
	UserPrompt = `Проанализируй Сообщение пользователя и Историю диалога, найди в Базе знаний сведения, которые полностью отвечают на вопрос, и напиши ответ только по Базе знаний.
База знаний: %s
История диалога: %s
Сообщение пользователя: %s`

	// HistoryPair expects: client question, consultant answer.
	HistoryPair = "Вопрос клиента: %s, Ответ нейроконсультанта: %s"
)
