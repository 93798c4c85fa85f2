package render

import "html/template"

// fragments are the building blocks of the message container. The document
// shape is fixed; only the data varies.
var fragments = template.Must(template.New("fragments").Parse(`
{{define "date"}}<div class="date"><p><bdi>{{.}}</bdi></p></div>{{end}}
{{define "open"}}<div class="message {{.Class}}"><p><strong><bdi>{{.Sender}}</bdi></strong></p>{{end}}
{{define "paragraph"}}<p><bdi>{{.}}</bdi></p>{{end}}
{{define "code"}}<div class="code-block"><pre>{{.}}</pre></div>{{end}}
{{define "fileLink"}}<p><a href="./media/{{.}}">{{.}}</a></p>{{end}}
{{define "video"}}<video class="video" controls><source src="./media/{{.}}" type="video/mp4"><source src="./media/{{.}}" type="video/quicktime">Your browser does not support the video tag.</video>{{end}}
{{define "image"}}<div class="container"><img class="img" src="./media/{{.}}"></div>{{end}}
{{define "audio"}}<audio class="audio" controls><source src="./media/{{.}}" type="audio/mpeg">Your browser does not support the audio tag.</audio>{{end}}
{{define "bareFile"}}<p><strong>{{.}}</strong></p>{{end}}
{{define "unknown"}}<p><em>Unknown message type</em></p>{{end}}
{{define "pretext"}}<p><em><bdi>{{.}}</bdi></em></p>{{end}}
{{define "attachmentTitle"}}<p><strong><bdi>{{.}}</bdi></strong></p>{{end}}
{{define "attachmentImage"}}<p><img class="img" src="{{.}}"></p>{{end}}
{{define "repliesButton"}}<div class="timestamp"><button onclick="showReplies('{{.TS}}')" data-timestamp="{{.TS}}" class="replies-btn">{{.Count}} replies</button>{{.Timestamp}}</div>{{end}}
{{define "timestamp"}}<div class="timestamp">{{.}}</div>{{end}}
`))

// document is the full archive page: title, message container, the reply
// lookup table serialized as JSON keyed by parent message timestamp, and
// the script that expands a thread in place when its control is activated.
var document = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
    <head>
        <meta charset="UTF-8">
        <meta name="viewport" content="width=device-width, initial-scale=1.0">
        <title>{{.Title}}</title>
        <style>
            body {
            background-color: #232931;
            color: #fff;
            font-family: Arial, sans-serif;
            font-size: 16px;
            }
            .container {
            margin-top: 30px;
            margin-bottom: 30px;
            max-width: 95%;
            margin-left: auto;
            margin-right: auto;
            background-color: #393E46;
            padding: 20px;
            border-radius: 10px;
            box-shadow: 0 0 10px rgba(0, 0, 0, 0.3);
            height: auto;
            clear: both;
            overflow: auto;
            }
            .message {
            padding: 10px;
            max-width: 780px;
            margin-bottom: 10px;
            border-radius: 5px;
            clear: both;
            }
            .message.me {
            background-color: #1c1c1c;
            float: right;
            }
            .message.other {
            background-color: #1c1c1c;
            float: left;
            }
            .message.reply {
            background-color: #1c1c1c;
            float: left;
            border: 1px solid #ccc;
            margin-top: 10px;
            }
            .message.me p, .message.other p, .message.reply p {
            margin: 0;
            font-size: 14px;
            line-height: 1.5;
            word-wrap: break-word;
            }
            .timestamp {
            font-size: 12px;
            color: #999;
            margin-top: 5px;
            margin-left: 5px;
            }
            .code-block {
            background-color: #383838;
            border: 1px solid #9c9c9c;
            border-radius: 5px;
            margin: 10px 0;
            padding: 10px;
            clear: both;
            overflow: auto;
            }
            .code-block pre {
            margin: 0;
            float: left;
            }
            .img {
            max-width: 100%;
            max-height: 400px;
            height: auto;
            }
            .video {
            max-width: 100%;
            max-height: 400px;
            height: auto;
            }
            .replies-btn {
            background-color: transparent;
            color: #00a6ff;
            border: none;
            font-size: 12px;
            cursor: pointer;
            }
            .replies-btn:hover {
            text-decoration: underline;
            }
            .date {
                display: block;
                width: 100%;
                margin-top: 10px;
                overflow: hidden;
                text-align: center;
                color: #999;
            }
            .date::after {
                content: "";
                display: inline-block;
                width: 100%;
                height: 1px;
                margin-bottom: 10px;
                background-color: #999;
            }
            @media (max-width: 800px) {
            .container {
            max-width: 90%;
            }
            }
            @media (max-width: 600px) {
            .message {
            max-width: 95%;
            }
            }
        </style>
    </head>
    <body>
        <div class="container">
            {{.Messages}}
        </div>
        <script>
            var replies = {{.Replies}};
            function showReplies(timestamp) {
                var repliesHtml = '';
                for (const element of replies[timestamp]) {
                    repliesHtml += element.html;
                }
                var parentContainer = document.querySelector('button[data-timestamp="' + timestamp + '"]').parentNode;
                var repliesContainer = document.createElement('div');
                repliesContainer.classList.add('replies-container');
                repliesContainer.innerHTML = repliesHtml;
                repliesContainer.setAttribute('data-timestamp', timestamp);
                parentContainer.parentNode.insertBefore(repliesContainer, parentContainer.nextSibling);
                parentContainer.removeChild(parentContainer.querySelector('button[data-timestamp="' + timestamp + '"]'));
            }
        </script>
    </body>
</html>
`))
